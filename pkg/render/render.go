package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/scenereel/pkg/geom"
	"github.com/cyclopcam/scenereel/pkg/nuscenes"
	"github.com/fogleman/gg"
)

var ErrUnsupportedModality = errors.New("Unsupported sensor modality")

// Suffix added to the base name of annotated frames and their sidecars
const AnnotatedSuffix = "_bbx"

// Source resolves sample_data tokens. *nuscenes.Catalog implements it.
type Source interface {
	SampleData(token string) (*nuscenes.SampleData, error)
	CameraView(token string, vis geom.Visibility) (*nuscenes.CameraView, error)
}

type Options struct {
	OutputWidth int     // Width of written frames, in pixels. 0 keeps the native width.
	Quality     int     // JPEG quality, 1..100
	LineWidth   float64 // Wireframe line width, in output pixels
	DrawTokens  bool    // Draw the annotation token next to each box
}

// Default options produce frames of the same size as a 9 inch wide figure at 200 DPI
func DefaultOptions() Options {
	return Options{
		OutputWidth: 1800,
		Quality:     95,
		LineWidth:   2,
		DrawTokens:  true,
	}
}

// Renderer draws camera frames, with or without their 3D box annotations.
// A Renderer holds no per-frame state, so a single instance may be used by concurrent scene workers.
type Renderer struct {
	Source  Source
	Options Options
}

// Result describes the files written by one Render call
type Result struct {
	ImagePath   string
	SidecarPath string // Empty for unannotated frames
	Width       int    // Dimensions of the written image
	Height      int
	Boxes       []geom.Box
}

func NewRenderer(source Source, options Options) *Renderer {
	return &Renderer{
		Source:  source,
		Options: options,
	}
}

// AnnotatedPath returns the path of the annotated variant of a frame, eg 000003.jpg -> 000003_bbx.jpg
func AnnotatedPath(framePath, ext string) string {
	return strings.TrimSuffix(framePath, filepath.Ext(framePath)) + AnnotatedSuffix + ext
}

// Render draws the camera capture 'sampleDataToken'.
// Without annotations, the image is written to outputPath.
// With annotations, the image goes to <base>_bbx.jpg and the box records to <base>_bbx.json.
func (r *Renderer) Render(ctx context.Context, sampleDataToken, outputPath string, withAnnotations bool, vis geom.Visibility) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sd, err := r.Source.SampleData(sampleDataToken)
	if err != nil {
		return nil, err
	}
	if sd.SensorModality != nuscenes.ModalityCamera {
		return nil, fmt.Errorf("%w: sample_data %v is '%v'", ErrUnsupportedModality, sampleDataToken, sd.SensorModality)
	}
	view, err := r.Source.CameraView(sampleDataToken, vis)
	if err != nil {
		return nil, err
	}
	src, err := LoadJPEG(view.ImagePath)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	var dc *gg.Context
	if withAnnotations {
		dc = r.draw(src, view)
		result.ImagePath = AnnotatedPath(outputPath, filepath.Ext(outputPath))
		result.SidecarPath = AnnotatedPath(outputPath, ".json")
		result.Boxes = view.Boxes
	} else {
		dc = r.canvas(src)
		result.ImagePath = outputPath
	}

	out := dc.Image().(*image.RGBA)
	result.Width = out.Rect.Dx()
	result.Height = out.Rect.Dy()
	if err := SaveJPEG(result.ImagePath, out, r.Options.Quality); err != nil {
		return nil, err
	}
	if withAnnotations {
		records := make([]SidecarRecord, len(view.Boxes))
		for i := range view.Boxes {
			records[i] = RecordFromBox(&view.Boxes[i])
		}
		if err := WriteSidecar(result.SidecarPath, records); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *Renderer) outputSize(width, height int) (int, int, float64) {
	if r.Options.OutputWidth <= 0 || r.Options.OutputWidth == width {
		return width, height, 1
	}
	scale := float64(r.Options.OutputWidth) / float64(width)
	// yuv420p encoders need an even height
	outH := 2 * int(math.Round(float64(height)*scale/2))
	return r.Options.OutputWidth, max(outH, 2), scale
}

// canvas creates a fresh drawing context for this frame, with the image painted on it,
// and a transform that maps native image pixels to output pixels.
func (r *Renderer) canvas(src *image.RGBA) *gg.Context {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	outW, outH, scale := r.outputSize(w, h)
	dc := gg.NewContext(outW, outH)
	dc.Scale(scale, scale)
	dc.DrawImage(src, 0, 0)
	// Anything that projects outside the native image is cropped
	dc.DrawRectangle(0, 0, float64(w), float64(h))
	dc.Clip()
	return dc
}

func (r *Renderer) draw(src *image.RGBA, view *nuscenes.CameraView) *gg.Context {
	dc := r.canvas(src)
	dc.SetLineCapRound()
	tags := []tag{}
	for i := range view.Boxes {
		box := &view.Boxes[i]
		p := box.Project(view.Intrinsic)
		drawWireframe(dc, &p, LabelColor(box.Label), r.Options.LineWidth)
		if r.Options.DrawTokens {
			tags = append(tags, makeTag(dc, box.Token, p.Corners[0]))
		}
	}
	// Tags go on top of every wireframe
	layoutTags(tags)
	drawTags(dc, tags)
	return dc
}

func drawWireframe(dc *gg.Context, p *geom.ProjectedBox, c color.Color, lineWidth float64) {
	dc.SetColor(c)
	dc.SetLineWidth(lineWidth)
	for _, e := range geom.BoxEdges {
		a, b := p.Corners[e[0]], p.Corners[e[1]]
		dc.DrawLine(a.X, a.Y, b.X, b.Y)
	}
	from, to := p.Heading()
	dc.DrawLine(from.X, from.Y, to.X, to.Y)
	dc.Stroke()
}
