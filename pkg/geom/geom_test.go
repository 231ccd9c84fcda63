package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func testIntrinsic() Intrinsic {
	return Intrinsic{
		{1000, 0, 800},
		{0, 1000, 450},
		{0, 0, 1},
	}
}

func TestQuaternionRotate(t *testing.T) {
	q := QuaternionFromAxisAngle(Vec3{0, 0, 1}, math.Pi/2)
	v := q.Rotate(Vec3{1, 0, 0})
	require.InDelta(t, 0, v[0], 1e-12)
	require.InDelta(t, 1, v[1], 1e-12)
	require.InDelta(t, 0, v[2], 1e-12)

	// Matrix and quaternion paths must agree
	m := q.RotationMatrix()
	require.InDelta(t, v[0], m.At(0, 0), 1e-12)
	require.InDelta(t, v[1], m.At(1, 0), 1e-12)

	back := q.Inverse().Rotate(v)
	require.InDelta(t, 1, back[0], 1e-12)
	require.InDelta(t, 0, back[1], 1e-12)
}

func TestNewBox(t *testing.T) {
	_, err := NewBox("a", "vehicle.car", Vec3{-1, 2, 3}, Vec3{}, IdentityQuaternion)
	require.ErrorIs(t, err, ErrInvalidBox)

	_, err = NewBox("a", "vehicle.car", Vec3{1, 2, 3}, Vec3{}, Quaternion{})
	require.ErrorIs(t, err, ErrInvalidBox)

	b, err := NewBox("a", "vehicle.car", Vec3{1, 2, 3}, Vec3{}, Quaternion{2, 0, 0, 0})
	require.NoError(t, err)
	require.Equal(t, IdentityQuaternion, b.Orientation)

	// Already-unit orientations are kept exactly
	q := QuaternionFromAxisAngle(Vec3{0, 0, 1}, 0.3)
	b, err = NewBox("a", "vehicle.car", Vec3{1, 2, 3}, Vec3{}, q)
	require.NoError(t, err)
	require.Equal(t, q, b.Orientation)
}

func TestCorners(t *testing.T) {
	b, _ := NewBox("a", "vehicle.car", Vec3{2, 4, 1.5}, Vec3{10, 20, 30}, IdentityQuaternion)
	c := b.Corners()
	// Front top left
	require.InDelta(t, 12, c.At(0, 0), 1e-12)
	require.InDelta(t, 21, c.At(1, 0), 1e-12)
	require.InDelta(t, 30.75, c.At(2, 0), 1e-12)
	// Rear bottom right
	require.InDelta(t, 8, c.At(0, 6), 1e-12)
	require.InDelta(t, 19, c.At(1, 6), 1e-12)
	require.InDelta(t, 29.25, c.At(2, 6), 1e-12)
}

func TestTranslateRotate(t *testing.T) {
	b, _ := NewBox("a", "vehicle.car", Vec3{1, 1, 1}, Vec3{1, 0, 0}, IdentityQuaternion)
	b.Translate(Vec3{1, 0, 0})
	require.Equal(t, Vec3{2, 0, 0}, b.Center)
	q := QuaternionFromAxisAngle(Vec3{0, 0, 1}, math.Pi)
	b.Rotate(q)
	require.InDelta(t, -2, b.Center[0], 1e-12)
	require.InDelta(t, 0, b.Center[1], 1e-12)
	require.InDelta(t, q[0], b.Orientation[0], 1e-12)
	require.InDelta(t, q[3], b.Orientation[3], 1e-12)
}

func TestProject(t *testing.T) {
	// Camera frame: z forward, x right, y down
	b, _ := NewBox("a", "vehicle.car", Vec3{2, 4, 1.5}, Vec3{0, 0, 20}, IdentityQuaternion)
	p := b.Project(testIntrinsic())
	for i, c := range p.Corners {
		require.True(t, c.X > 0 && c.X < 1600, "corner %v x=%v", i, c.X)
		require.True(t, c.Y > 0 && c.Y < 900, "corner %v y=%v", i, c.Y)
	}
	// Corner 0 is at (2, 1, 20.75)
	require.InDelta(t, 800+1000*2/20.75, p.Corners[0].X, 1e-9)
	require.InDelta(t, 450+1000*1/20.75, p.Corners[0].Y, 1e-9)

	from, to := p.Heading()
	require.NotEqual(t, from, to)
}

func TestViewPointsNoNormalize(t *testing.T) {
	b, _ := NewBox("a", "x", Vec3{1, 1, 1}, Vec3{0, 0, 5}, IdentityQuaternion)
	pts := ViewPoints(b.Corners(), testIntrinsic().Matrix(), false)
	// Without normalization the third row is depth
	require.InDelta(t, b.Corners().At(2, 0), pts.At(2, 0), 1e-12)
}

func TestBoxInImage(t *testing.T) {
	k := testIntrinsic()
	inFront, _ := NewBox("a", "x", Vec3{2, 4, 1.5}, Vec3{0, 0, 20}, IdentityQuaternion)
	behind, _ := NewBox("b", "x", Vec3{2, 4, 1.5}, Vec3{0, 0, -20}, IdentityQuaternion)
	edge, _ := NewBox("c", "x", Vec3{2, 4, 1.5}, Vec3{16, 0, 20}, IdentityQuaternion)

	require.True(t, BoxInImage(&inFront, k, 1600, 900, VisibilityAny))
	require.True(t, BoxInImage(&inFront, k, 1600, 900, VisibilityAll))
	require.False(t, BoxInImage(&behind, k, 1600, 900, VisibilityAny))
	require.True(t, BoxInImage(&behind, k, 1600, 900, VisibilityNone))
	require.True(t, BoxInImage(&edge, k, 1600, 900, VisibilityAny))
	require.False(t, BoxInImage(&edge, k, 1600, 900, VisibilityAll))
}

func TestParseVisibility(t *testing.T) {
	v, err := ParseVisibility("ALL")
	require.NoError(t, err)
	require.Equal(t, VisibilityAll, v)
	_, err = ParseVisibility("most")
	require.Error(t, err)
}

func TestIntrinsicFromRows(t *testing.T) {
	_, err := IntrinsicFromRows([][]float64{{1, 0, 0}, {0, 1, 0}})
	require.ErrorIs(t, err, ErrInvalidIntrinsic)
	k, err := IntrinsicFromRows([][]float64{{1000, 0, 800}, {0, 1000, 450}, {0, 0, 1}})
	require.NoError(t, err)
	require.Equal(t, testIntrinsic(), k)
}

func TestSlerp(t *testing.T) {
	a := IdentityQuaternion
	b := QuaternionFromAxisAngle(Vec3{0, 0, 1}, math.Pi/2)
	require.Equal(t, a, Slerp(a, b, 0))
	half := Slerp(a, b, 0.5)
	want := QuaternionFromAxisAngle(Vec3{0, 0, 1}, math.Pi/4)
	for i := 0; i < 4; i++ {
		require.InDelta(t, want[i], half[i], 1e-12)
	}
	// Takes the short way around when b is given with a negative sign
	neg := Quaternion{-b[0], -b[1], -b[2], -b[3]}
	half = Slerp(a, neg, 0.5)
	for i := 0; i < 4; i++ {
		require.InDelta(t, want[i], half[i], 1e-12)
	}
}
