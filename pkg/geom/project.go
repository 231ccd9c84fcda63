package geom

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var ErrInvalidIntrinsic = errors.New("Invalid camera intrinsic")

// Intrinsic is a 3x3 pinhole camera matrix, row major
type Intrinsic [3][3]float64

// IntrinsicFromRows validates a matrix as read from a calibration table
func IntrinsicFromRows(rows [][]float64) (Intrinsic, error) {
	k := Intrinsic{}
	if len(rows) != 3 {
		return k, fmt.Errorf("%w: expected 3 rows, got %v", ErrInvalidIntrinsic, len(rows))
	}
	for r := 0; r < 3; r++ {
		if len(rows[r]) != 3 {
			return k, fmt.Errorf("%w: expected 3 columns in row %v, got %v", ErrInvalidIntrinsic, r, len(rows[r]))
		}
		copy(k[r][:], rows[r])
	}
	if k[2][2] == 0 {
		return k, fmt.Errorf("%w: K[2][2] is zero", ErrInvalidIntrinsic)
	}
	return k, nil
}

func (k Intrinsic) Matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		k[0][0], k[0][1], k[0][2],
		k[1][0], k[1][1], k[1][2],
		k[2][0], k[2][1], k[2][2],
	})
}

// ViewPoints maps the 3xN matrix 'points' through 'view', which may be up to 4x4.
// The view is padded to 4x4 with the identity, so a 3x3 camera intrinsic or a
// full 4x4 transform are both accepted.
// If normalize is true, the result is divided by its third row (perspective division).
func ViewPoints(points mat.Matrix, view mat.Matrix, normalize bool) *mat.Dense {
	vr, vc := view.Dims()
	if vr > 4 || vc > 4 {
		panic("ViewPoints: view must be at most 4x4")
	}
	pr, n := points.Dims()
	if pr != 3 {
		panic("ViewPoints: points must have 3 rows")
	}

	pad := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		pad.Set(i, i, 1)
	}
	for r := 0; r < vr; r++ {
		for c := 0; c < vc; c++ {
			pad.Set(r, c, view.At(r, c))
		}
	}

	homo := mat.NewDense(4, n, nil)
	for c := 0; c < n; c++ {
		homo.Set(0, c, points.At(0, c))
		homo.Set(1, c, points.At(1, c))
		homo.Set(2, c, points.At(2, c))
		homo.Set(3, c, 1)
	}

	full := mat.NewDense(4, n, nil)
	full.Mul(pad, homo)

	out := mat.NewDense(3, n, nil)
	for c := 0; c < n; c++ {
		z := full.At(2, c)
		for r := 0; r < 3; r++ {
			v := full.At(r, c)
			if normalize {
				v /= z
			}
			out.Set(r, c, v)
		}
	}
	return out
}

// Point2 is a location on the image plane, in pixels
type Point2 struct {
	X float64
	Y float64
}

// ProjectedBox is a Box after perspective projection onto the image plane
type ProjectedBox struct {
	Corners [8]Point2
}

// BoxEdges are the 12 corner index pairs of a box wireframe:
// the front face, the rear face, and the four edges joining them.
var BoxEdges = [12][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 0},
	{4, 5}, {5, 6}, {6, 7}, {7, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// Project transforms the box corners through the intrinsic matrix.
// The box must already be in the camera frame.
func (b *Box) Project(k Intrinsic) ProjectedBox {
	pts := ViewPoints(b.Corners(), k.Matrix(), true)
	p := ProjectedBox{}
	for i := 0; i < 8; i++ {
		p.Corners[i] = Point2{X: pts.At(0, i), Y: pts.At(1, i)}
	}
	return p
}

// Heading returns a line from the center of the bottom face to the center of the
// bottom edge of the front face, which shows which way the object is facing.
func (p *ProjectedBox) Heading() (from, to Point2) {
	c := p.Corners
	to = Point2{X: (c[2].X + c[3].X) / 2, Y: (c[2].Y + c[3].Y) / 2}
	from = Point2{X: (c[2].X + c[3].X + c[7].X + c[6].X) / 4, Y: (c[2].Y + c[3].Y + c[7].Y + c[6].Y) / 4}
	return
}

// Visibility decides which boxes count as visible in a camera image
type Visibility int

const (
	VisibilityAny  Visibility = iota // At least one corner is inside the image
	VisibilityAll                    // Every corner is inside the image
	VisibilityNone                   // No filtering
)

func (v Visibility) String() string {
	switch v {
	case VisibilityAny:
		return "any"
	case VisibilityAll:
		return "all"
	case VisibilityNone:
		return "none"
	}
	return fmt.Sprintf("Visibility(%d)", int(v))
}

func ParseVisibility(s string) (Visibility, error) {
	switch strings.ToLower(s) {
	case "", "any":
		return VisibilityAny, nil
	case "all":
		return VisibilityAll, nil
	case "none":
		return VisibilityNone, nil
	}
	return VisibilityAny, fmt.Errorf("Unknown visibility '%v' (expected any, all, or none)", s)
}

// Corners closer than this to the camera plane are treated as behind the camera
const MinDepth = 0.1

// BoxInImage reports whether the box (in the camera frame) is visible in an image of the given size
func BoxInImage(b *Box, k Intrinsic, width, height int, vis Visibility) bool {
	if vis == VisibilityNone {
		return true
	}
	corners := b.Corners()
	img := ViewPoints(corners, k.Matrix(), true)
	nVisible := 0
	for i := 0; i < 8; i++ {
		x, y := img.At(0, i), img.At(1, i)
		inside := x > 0 && x < float64(width) && y > 0 && y < float64(height) && corners.At(2, i) > MinDepth
		if inside {
			nVisible++
		}
	}
	if vis == VisibilityAll {
		return nVisible == 8
	}
	return nVisible > 0
}
