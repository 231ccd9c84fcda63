package videox

import (
	"fmt"
	"strings"
)

// VideoCodec is an ffmpeg encoder chosen by a four character code, in the style of
// OpenCV's VideoWriter.
type VideoCodec struct {
	FourCC  string // eg "mp4v"
	Encoder string // ffmpeg encoder name
	Tag     string // Codec tag written into the container. Empty leaves ffmpeg's default.
}

var fourCCs = map[string]VideoCodec{
	"mp4v": {FourCC: "mp4v", Encoder: "mpeg4", Tag: "mp4v"},
	"avc1": {FourCC: "avc1", Encoder: "libx264", Tag: "avc1"},
	"h264": {FourCC: "h264", Encoder: "libx264", Tag: "avc1"},
	"x264": {FourCC: "x264", Encoder: "libx264", Tag: "avc1"},
	"hvc1": {FourCC: "hvc1", Encoder: "libx265", Tag: "hvc1"},
	"hevc": {FourCC: "hevc", Encoder: "libx265", Tag: "hvc1"},
	"mjpg": {FourCC: "mjpg", Encoder: "mjpeg"},
}

// ParseFourCC maps a four character code onto an ffmpeg encoder
func ParseFourCC(fourcc string) (VideoCodec, error) {
	c, ok := fourCCs[strings.ToLower(fourcc)]
	if !ok {
		return VideoCodec{}, fmt.Errorf("Unknown video codec fourcc '%v'", fourcc)
	}
	return c, nil
}
