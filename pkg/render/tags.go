package render

import (
	"math"

	flatbush "github.com/bmharper/flatbush-go"
	"github.com/cyclopcam/scenereel/pkg/geom"
	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

const tagPad = 2

// tag is a text label in output pixels. (X,Y) is the start of the baseline.
type tag struct {
	Text string
	X, Y float64
	W, H float64
}

func (t *tag) bounds() (minX, minY, maxX, maxY int32) {
	return int32(math.Floor(t.X - tagPad)), int32(math.Floor(t.Y - t.H - tagPad)), int32(math.Ceil(t.X + t.W + tagPad)), int32(math.Ceil(t.Y + tagPad))
}

// layoutTags moves each tag down by one line for every earlier tag that it overlaps.
// Boxes of adjacent vehicles often project their first corner to nearly the same spot.
func layoutTags(tags []tag) {
	if len(tags) < 2 {
		return
	}
	fb := flatbush.NewFlatbush[int32]()
	fb.Reserve(len(tags))
	for i := range tags {
		fb.Add(tags[i].bounds())
	}
	fb.Finish()

	shifts := make([]int, len(tags))
	for i := range tags {
		for _, j := range fb.Search(tags[i].bounds()) {
			if j < i {
				shifts[i]++
			}
		}
	}
	for i := range tags {
		tags[i].Y += float64(shifts[i]) * (tags[i].H + 2*tagPad)
	}
}

// makeTag measures text that will be anchored at 'at', in native image pixels
func makeTag(dc *gg.Context, text string, at geom.Point2) tag {
	x, y := dc.TransformPoint(at.X, at.Y)
	dc.Push()
	dc.SetFontFace(basicfont.Face7x13)
	w, h := dc.MeasureString(text)
	dc.Pop()
	return tag{Text: text, X: x, Y: y, W: w, H: h}
}

// drawTags writes each tag on a half transparent white background.
// Text is drawn in output pixels, so that it stays legible regardless of the output scale.
func drawTags(dc *gg.Context, tags []tag) {
	dc.Push()
	dc.Identity()
	dc.SetFontFace(basicfont.Face7x13)
	for _, t := range tags {
		dc.SetRGBA(1, 1, 1, 0.5)
		dc.DrawRectangle(t.X-tagPad, t.Y-t.H-tagPad, t.W+2*tagPad, t.H+2*tagPad)
		dc.Fill()
		dc.SetRGB(1, 0, 0)
		dc.DrawString(t.Text, t.X, t.Y)
	}
	dc.Pop()
}
