package pipeline

import (
	"fmt"

	"github.com/cyclopcam/scenereel/pkg/geom"
	"github.com/cyclopcam/scenereel/pkg/nuscenes"
	"github.com/cyclopcam/scenereel/pkg/videox"
)

// RenderMode selects which frame variants are written for every sample
type RenderMode int

const (
	RenderAnnotated RenderMode = iota
	RenderRaw
	RenderBoth
)

func ParseRenderMode(s string) (RenderMode, error) {
	switch s {
	case "", "annotated":
		return RenderAnnotated, nil
	case "raw":
		return RenderRaw, nil
	case "both":
		return RenderBoth, nil
	}
	return RenderAnnotated, fmt.Errorf("Unknown render mode '%v' (expected annotated, raw, or both)", s)
}

func (m RenderMode) String() string {
	switch m {
	case RenderRaw:
		return "raw"
	case RenderBoth:
		return "both"
	}
	return "annotated"
}

// Annotated renders come first in "both" mode
func (m RenderMode) variants() []bool {
	switch m {
	case RenderRaw:
		return []bool{false}
	case RenderBoth:
		return []bool{true, false}
	}
	return []bool{true}
}

// The frames that go into the scene's video. Annotated wins when both exist.
func (m RenderMode) videoVariant() videox.FrameVariant {
	if m == RenderRaw {
		return videox.FrameRaw
	}
	return videox.FrameAnnotated
}

type Options struct {
	OutputRoot string
	Channel    string
	Mode       RenderMode
	Visibility geom.Visibility
	MakeVideo  bool
	FPS        float64
	Codec      videox.VideoCodec
	Exclude    videox.ExclusionPolicy
	Transcode  bool // Also write converted_<scene>.mp4
	Resume     bool // Skip scenes that the run index marks as done
	Workers    int  // Scenes processed concurrently
	NewSink    videox.SinkFactory
}

func DefaultOptions(outputRoot string) Options {
	codec, _ := videox.ParseFourCC("mp4v")
	return Options{
		OutputRoot: outputRoot,
		Channel:    nuscenes.ChannelCamFront,
		Mode:       RenderAnnotated,
		Visibility: geom.VisibilityAny,
		MakeVideo:  true,
		FPS:        2,
		Codec:      codec,
		Exclude:    videox.ExcludeFirstIndex,
		Workers:    1,
	}
}
