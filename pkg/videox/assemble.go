package videox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cyclopcam/scenereel/pkg/iox"
	"github.com/cyclopcam/scenereel/pkg/log"
)

var ErrEmptyFrameSet = errors.New("No frames to assemble")
var ErrDimensionMismatch = errors.New("Frame dimensions differ from the first frame")
var ErrInvalidFPS = errors.New("Frame rate must be positive")

// FrameVariant selects which of the rendered frames go into a video
type FrameVariant int

const (
	FrameRaw       FrameVariant = iota // 000000.jpg
	FrameAnnotated                     // 000000_bbx.jpg
)

func (v FrameVariant) String() string {
	if v == FrameAnnotated {
		return "annotated"
	}
	return "raw"
}

var rawFrameRegex = regexp.MustCompile(`^(\d{6})\.jpg$`)
var annotatedFrameRegex = regexp.MustCompile(`^(\d{6})_bbx\.jpg$`)

func (v FrameVariant) regex() *regexp.Regexp {
	if v == FrameAnnotated {
		return annotatedFrameRegex
	}
	return rawFrameRegex
}

// ExclusionPolicy drops frames from a video by index
type ExclusionPolicy int

const (
	ExcludeNothing    ExclusionPolicy = iota
	ExcludeFirstIndex                 // Drop frame 000000, which some tooling writes as a placeholder
)

func (p ExclusionPolicy) excludes(index int) bool {
	return p == ExcludeFirstIndex && index == 0
}

type AssembleParams struct {
	FrameDir   string
	OutputPath string
	FPS        float64
	Codec      VideoCodec
	Variant    FrameVariant
	Exclude    ExclusionPolicy
	NewSink    SinkFactory // nil uses NewFFmpegSink
}

// Video describes a successfully assembled file
type Video struct {
	Path      string
	Width     int
	Height    int
	NumFrames int
	FPS       float64
	Frames    []string // Full paths of the frames, in playback order
}

// ListFrames returns the frames of the given variant in dir, sorted by name, after applying the exclusion policy
func ListFrames(dir string, variant FrameVariant, exclude ExclusionPolicy) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	re := variant.regex()
	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := re.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		index, _ := strconv.Atoi(m[1])
		if exclude.excludes(index) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	frames := make([]string, len(names))
	for i, n := range names {
		frames[i] = filepath.Join(dir, n)
	}
	return frames, nil
}

// PartialPath is where a video is written before it is renamed into place
func PartialPath(outputPath string) string {
	ext := filepath.Ext(outputPath)
	return strings.TrimSuffix(outputPath, ext) + ".partial" + ext
}

// Assemble encodes the frames in FrameDir into a single video at OutputPath.
// The output only appears once every frame has been encoded.
func Assemble(ctx context.Context, logger log.Log, params AssembleParams) (*Video, error) {
	if params.FPS <= 0 {
		return nil, ErrInvalidFPS
	}
	frames, err := ListFrames(params.FrameDir, params.Variant, params.Exclude)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no %v frames in %v", ErrEmptyFrameSet, params.Variant, params.FrameDir)
	}

	first, err := iox.ReadJPEG(frames[0])
	if err != nil {
		return nil, fmt.Errorf("Failed to decode %v: %w", frames[0], err)
	}
	width, height := first.Width, first.Height

	newSink := params.NewSink
	if newSink == nil {
		newSink = NewFFmpegSink
	}
	partial := PartialPath(params.OutputPath)
	if err := os.MkdirAll(filepath.Dir(params.OutputPath), 0755); err != nil {
		return nil, err
	}
	sink, err := newSink(partial, width, height, params.FPS, params.Codec)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*Video, error) {
		sink.Abort()
		os.Remove(partial)
		return nil, err
	}

	logger.Debugf("Assembling %v frames (%vx%v) into %v", len(frames), width, height, params.OutputPath)
	for i, fn := range frames {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		img := first
		if i != 0 {
			img, err = iox.ReadJPEG(fn)
			if err != nil {
				return fail(fmt.Errorf("Failed to decode %v: %w", fn, err))
			}
		}
		if img.Width != width || img.Height != height {
			return fail(fmt.Errorf("%w: %v is %vx%v, expected %vx%v", ErrDimensionMismatch, filepath.Base(fn), img.Width, img.Height, width, height))
		}
		if img.NChan() != 3 {
			img = img.ToRGB()
		}
		if err := sink.WriteFrame(img); err != nil {
			return fail(fmt.Errorf("Failed to encode %v: %w", filepath.Base(fn), err))
		}
	}
	if err := sink.Close(); err != nil {
		os.Remove(partial)
		return nil, err
	}
	if err := os.Rename(partial, params.OutputPath); err != nil {
		os.Remove(partial)
		return nil, err
	}

	return &Video{
		Path:      params.OutputPath,
		Width:     width,
		Height:    height,
		NumFrames: len(frames),
		FPS:       params.FPS,
		Frames:    frames,
	}, nil
}
