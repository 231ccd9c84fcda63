package videox

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/bmharper/cimg/v2"
)

// FrameSink consumes a sequence of equally sized RGB frames and produces a video file
type FrameSink interface {
	WriteFrame(img *cimg.Image) error
	// Close flushes the encoder and finalizes the file
	Close() error
	// Abort stops the encoder. The output file may be partially written.
	Abort()
}

// SinkFactory opens a FrameSink writing to filename
type SinkFactory func(filename string, width, height int, fps float64, codec VideoCodec) (FrameSink, error)

// FFmpegSink pipes raw rgb24 frames into an ffmpeg process
type FFmpegSink struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	width  int
	height int
	row    []byte
	closed bool
}

// NewFFmpegSink starts ffmpeg. It matches the SinkFactory signature.
func NewFFmpegSink(filename string, width, height int, fps float64, codec VideoCodec) (FrameSink, error) {
	appPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("Unable to find 'ffmpeg' in your path (%w)", err)
	}
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%vx%v", width, height),
		"-r", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", "-",
		"-an",
		"-c:v", codec.Encoder,
	}
	if codec.Tag != "" {
		args = append(args, "-tag:v", codec.Tag)
	}
	if codec.Encoder != "mjpeg" {
		// yuv420p needs even dimensions
		args = append(args, "-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2", "-pix_fmt", "yuv420p")
	} else {
		args = append(args, "-pix_fmt", "yuvj420p")
	}
	args = append(args, filename)

	s := &FFmpegSink{
		width:  width,
		height: height,
		row:    make([]byte, width*3),
	}
	s.cmd = exec.Command(appPath, args...)
	s.cmd.Stderr = &s.stderr
	s.stdin, err = s.cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := s.cmd.Start(); err != nil {
		return nil, fmt.Errorf("Failed to start ffmpeg: %w", err)
	}
	return s, nil
}

func (s *FFmpegSink) WriteFrame(img *cimg.Image) error {
	if img.Width != s.width || img.Height != s.height {
		return fmt.Errorf("%w: frame is %vx%v, video is %vx%v", ErrDimensionMismatch, img.Width, img.Height, s.width, s.height)
	}
	if img.Format != cimg.PixelFormatRGB {
		img = img.ToRGB()
	}
	if img.Stride == s.width*3 {
		_, err := s.stdin.Write(img.Pixels[:s.height*img.Stride])
		return s.wrapErr(err)
	}
	for y := 0; y < s.height; y++ {
		copy(s.row, img.Pixels[y*img.Stride:y*img.Stride+s.width*3])
		if _, err := s.stdin.Write(s.row); err != nil {
			return s.wrapErr(err)
		}
	}
	return nil
}

// A write error usually means ffmpeg died, in which case stderr explains why
func (s *FFmpegSink) wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if s.stderr.Len() != 0 {
		return &ExitErrorVerbose{App: "ffmpeg", Err: err, Output: s.stderr.String()}
	}
	return err
}

func (s *FFmpegSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		return &ExitErrorVerbose{App: "ffmpeg", Err: err, Output: s.stderr.String()}
	}
	return nil
}

func (s *FFmpegSink) Abort() {
	if s.closed {
		return
	}
	s.closed = true
	s.stdin.Close()
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.cmd.Wait()
}
