package geom

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// Vec3 is a point or direction in a right handed 3D frame
type Vec3 [3]float64

func (v Vec3) Add(b Vec3) Vec3 {
	return Vec3{v[0] + b[0], v[1] + b[1], v[2] + b[2]}
}

func (v Vec3) Sub(b Vec3) Vec3 {
	return Vec3{v[0] - b[0], v[1] - b[1], v[2] - b[2]}
}

func (v Vec3) Neg() Vec3 {
	return Vec3{-v[0], -v[1], -v[2]}
}

// Quaternion is a rotation stored in the dataset's component order: w, x, y, z
type Quaternion [4]float64

// IdentityQuaternion is the zero rotation
var IdentityQuaternion = Quaternion{1, 0, 0, 0}

func fromNumber(n quat.Number) Quaternion {
	return Quaternion{n.Real, n.Imag, n.Jmag, n.Kmag}
}

func (q Quaternion) number() quat.Number {
	return quat.Number{Real: q[0], Imag: q[1], Jmag: q[2], Kmag: q[3]}
}

// Norm returns the magnitude of q. Rotations have a norm of 1.
func (q Quaternion) Norm() float64 {
	return quat.Abs(q.number())
}

// Normalize returns q scaled to unit length. A zero quaternion becomes the identity.
func (q Quaternion) Normalize() Quaternion {
	n := q.Norm()
	if n == 0 || math.IsNaN(n) {
		return IdentityQuaternion
	}
	return fromNumber(quat.Scale(1/n, q.number()))
}

// IsUnit reports whether q is a rotation, within tolerance
func (q Quaternion) IsUnit(tolerance float64) bool {
	return math.Abs(q.Norm()-1) <= tolerance
}

// Mul returns the rotation q applied after b
func (q Quaternion) Mul(b Quaternion) Quaternion {
	return fromNumber(quat.Mul(q.number(), b.number()))
}

// Inverse returns the opposite rotation
func (q Quaternion) Inverse() Quaternion {
	return fromNumber(quat.Inv(q.number()))
}

// Rotate applies the rotation to v
func (q Quaternion) Rotate(v Vec3) Vec3 {
	p := quat.Number{Imag: v[0], Jmag: v[1], Kmag: v[2]}
	r := quat.Mul(quat.Mul(q.number(), p), quat.Inv(q.number()))
	return Vec3{r.Imag, r.Jmag, r.Kmag}
}

// RotationMatrix returns the 3x3 rotation matrix of the normalized quaternion
func (q Quaternion) RotationMatrix() *mat.Dense {
	u := q.Normalize()
	w, x, y, z := u[0], u[1], u[2], u[3]
	return mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w),
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w),
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y),
	})
}

// QuaternionFromAxisAngle builds a rotation of 'radians' about 'axis'
func QuaternionFromAxisAngle(axis Vec3, radians float64) Quaternion {
	n := math.Sqrt(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])
	if n == 0 {
		return IdentityQuaternion
	}
	s := math.Sin(radians/2) / n
	return Quaternion{math.Cos(radians / 2), axis[0] * s, axis[1] * s, axis[2] * s}
}

// Slerp interpolates between rotations a and b. amount=0 yields a, amount=1 yields b.
// The shorter arc is always taken.
func Slerp(a, b Quaternion, amount float64) Quaternion {
	a = a.Normalize()
	b = b.Normalize()
	dot := a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]
	if dot < 0 {
		b = Quaternion{-b[0], -b[1], -b[2], -b[3]}
		dot = -dot
	}
	if dot > 0.9995 {
		// Nearly parallel. Linear interpolation is accurate and avoids dividing by ~0.
		r := Quaternion{}
		for i := 0; i < 4; i++ {
			r[i] = a[i] + amount*(b[i]-a[i])
		}
		return r.Normalize()
	}
	theta := math.Acos(dot)
	sinTheta := math.Sin(theta)
	wa := math.Sin((1-amount)*theta) / sinTheta
	wb := math.Sin(amount*theta) / sinTheta
	return Quaternion{
		wa*a[0] + wb*b[0],
		wa*a[1] + wb*b[1],
		wa*a[2] + wb*b[2],
		wa*a[3] + wb*b[3],
	}
}
