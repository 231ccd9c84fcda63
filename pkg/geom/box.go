package geom

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var ErrInvalidBox = errors.New("Invalid box")

// Box is an oriented 3D bounding box of one annotated object at one instant.
// The frame that Center and Orientation are expressed in depends on who is holding the box:
// boxes come out of the dataset in global coordinates, and are moved into the
// sensor frame before projection.
type Box struct {
	Token       string     // Annotation token
	Label       string     // Category name, eg "vehicle.truck"
	WLH         Vec3       // Width, length, height in meters
	Center      Vec3       // Meters
	Orientation Quaternion // w,x,y,z
}

// NewBox validates the dimensions, and normalizes the orientation if it has drifted from unit length
func NewBox(token, label string, wlh, center Vec3, orientation Quaternion) (Box, error) {
	for i := 0; i < 3; i++ {
		if wlh[i] < 0 {
			return Box{}, fmt.Errorf("%w: %v has negative size %v", ErrInvalidBox, token, wlh)
		}
	}
	if orientation.Norm() == 0 {
		return Box{}, fmt.Errorf("%w: %v has a zero orientation quaternion", ErrInvalidBox, token)
	}
	if !orientation.IsUnit(1e-9) {
		orientation = orientation.Normalize()
	}
	return Box{
		Token:       token,
		Label:       label,
		WLH:         wlh,
		Center:      center,
		Orientation: orientation,
	}, nil
}

func (b *Box) Translate(v Vec3) {
	b.Center = b.Center.Add(v)
}

// Rotate rotates the box about the origin of its frame
func (b *Box) Rotate(q Quaternion) {
	b.Center = q.Rotate(b.Center)
	b.Orientation = q.Mul(b.Orientation)
}

// Corners returns a 3x8 matrix of the box corners.
// The first four corners are the front face (facing the heading direction), and the
// last four are the rear face. Within each face the order is
// top-left, top-right, bottom-right, bottom-left when viewed from outside the box.
func (b *Box) Corners() *mat.Dense {
	w, l, h := b.WLH[0], b.WLH[1], b.WLH[2]
	xs := []float64{1, 1, 1, 1, -1, -1, -1, -1}
	ys := []float64{1, -1, -1, 1, 1, -1, -1, 1}
	zs := []float64{1, 1, -1, -1, 1, 1, -1, -1}
	local := mat.NewDense(3, 8, nil)
	for i := 0; i < 8; i++ {
		local.Set(0, i, xs[i]*l/2)
		local.Set(1, i, ys[i]*w/2)
		local.Set(2, i, zs[i]*h/2)
	}
	corners := mat.NewDense(3, 8, nil)
	corners.Mul(b.Orientation.RotationMatrix(), local)
	for i := 0; i < 8; i++ {
		for r := 0; r < 3; r++ {
			corners.Set(r, i, corners.At(r, i)+b.Center[r])
		}
	}
	return corners
}
