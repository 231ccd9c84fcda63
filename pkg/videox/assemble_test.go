package videox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/scenereel/pkg/iox"
	"github.com/cyclopcam/scenereel/pkg/log"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	filename string
	width    int
	height   int
	frames   int
	aborted  bool
	closed   bool
}

type fakeSinks struct {
	opened []*fakeSink
}

func (f *fakeSinks) factory(filename string, width, height int, fps float64, codec VideoCodec) (FrameSink, error) {
	s := &fakeSink{filename: filename, width: width, height: height}
	if err := os.WriteFile(filename, []byte("header"), 0644); err != nil {
		return nil, err
	}
	f.opened = append(f.opened, s)
	return s, nil
}

func (s *fakeSink) WriteFrame(img *cimg.Image) error {
	if img.Width != s.width || img.Height != s.height {
		return ErrDimensionMismatch
	}
	s.frames++
	return nil
}

func (s *fakeSink) Close() error {
	s.closed = true
	return nil
}

func (s *fakeSink) Abort() {
	s.aborted = true
}

func writeFrame(t *testing.T, filename string, width, height int, shade byte) {
	img := cimg.NewImage(width, height, cimg.PixelFormatRGB)
	for i := range img.Pixels {
		img.Pixels[i] = shade
	}
	buf, err := cimg.Compress(img, cimg.MakeCompressParams(cimg.Sampling420, 90, 0))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filename, buf, 0644))
}

func writeFrames(t *testing.T, dir string, n, width, height int, annotated bool) {
	for i := 0; i < n; i++ {
		writeFrame(t, filepath.Join(dir, fmt.Sprintf("%06d.jpg", i)), width, height, byte(i*40))
		if annotated {
			writeFrame(t, filepath.Join(dir, fmt.Sprintf("%06d_bbx.jpg", i)), width, height, byte(i*40+10))
		}
	}
}

func mp4v(t *testing.T) VideoCodec {
	c, err := ParseFourCC("mp4v")
	require.NoError(t, err)
	return c
}

func TestAssemble(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 5, 200, 100, false)
	out := filepath.Join(dir, "videos", "scene-0001.mp4")
	sinks := &fakeSinks{}
	v, err := Assemble(context.Background(), log.NewTestingLog(t), AssembleParams{
		FrameDir:   dir,
		OutputPath: out,
		FPS:        2,
		Codec:      mp4v(t),
		Variant:    FrameRaw,
		NewSink:    sinks.factory,
	})
	require.NoError(t, err)
	require.Equal(t, 5, v.NumFrames)
	require.Equal(t, 200, v.Width)
	require.Equal(t, 100, v.Height)
	require.Equal(t, 2.0, v.FPS)
	require.Equal(t, filepath.Join(dir, "000000.jpg"), v.Frames[0])
	require.Equal(t, filepath.Join(dir, "000004.jpg"), v.Frames[4])
	require.Len(t, sinks.opened, 1)
	require.Equal(t, 5, sinks.opened[0].frames)
	require.True(t, sinks.opened[0].closed)
	require.Equal(t, PartialPath(out), sinks.opened[0].filename)
	require.FileExists(t, out)
	require.NoFileExists(t, PartialPath(out))
}

func TestAssembleEmpty(t *testing.T) {
	dir := t.TempDir()
	// Only annotated frames exist, and we ask for raw ones
	writeFrame(t, filepath.Join(dir, "000000_bbx.jpg"), 64, 32, 0)
	out := filepath.Join(dir, "out.mp4")
	sinks := &fakeSinks{}
	_, err := Assemble(context.Background(), log.NewTestingLog(t), AssembleParams{
		FrameDir:   dir,
		OutputPath: out,
		FPS:        2,
		Codec:      mp4v(t),
		Variant:    FrameRaw,
		NewSink:    sinks.factory,
	})
	require.ErrorIs(t, err, ErrEmptyFrameSet)
	require.Len(t, sinks.opened, 0)
	require.NoFileExists(t, out)
	require.NoFileExists(t, PartialPath(out))
}

func TestAssembleDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 3, 200, 100, false)
	writeFrame(t, filepath.Join(dir, "000003.jpg"), 100, 100, 0)
	out := filepath.Join(dir, "out.mp4")
	sinks := &fakeSinks{}
	_, err := Assemble(context.Background(), log.NewTestingLog(t), AssembleParams{
		FrameDir:   dir,
		OutputPath: out,
		FPS:        2,
		Codec:      mp4v(t),
		NewSink:    sinks.factory,
	})
	require.ErrorIs(t, err, ErrDimensionMismatch)
	require.Len(t, sinks.opened, 1)
	require.True(t, sinks.opened[0].aborted)
	require.NoFileExists(t, out)
	require.NoFileExists(t, PartialPath(out))
}

func TestAssembleEmptyFrameFile(t *testing.T) {
	for _, emptyIndex := range []int{0, 2} {
		dir := t.TempDir()
		writeFrames(t, dir, 4, 64, 32, false)
		require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("%06d.jpg", emptyIndex)), nil, 0644))
		out := filepath.Join(dir, "out.mp4")
		sinks := &fakeSinks{}
		_, err := Assemble(context.Background(), log.NewTestingLog(t), AssembleParams{
			FrameDir:   dir,
			OutputPath: out,
			FPS:        2,
			Codec:      mp4v(t),
			NewSink:    sinks.factory,
		})
		require.ErrorIs(t, err, iox.ErrNotJPEG)
		if emptyIndex == 0 {
			require.Len(t, sinks.opened, 0)
		} else {
			require.Len(t, sinks.opened, 1)
			require.True(t, sinks.opened[0].aborted)
		}
		require.NoFileExists(t, out)
		require.NoFileExists(t, PartialPath(out))
	}
}

func TestAssembleExcludeFirst(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 4, 64, 32, true)
	sinks := &fakeSinks{}
	v, err := Assemble(context.Background(), log.NewTestingLog(t), AssembleParams{
		FrameDir:   dir,
		OutputPath: filepath.Join(dir, "out.mp4"),
		FPS:        2,
		Codec:      mp4v(t),
		Variant:    FrameAnnotated,
		Exclude:    ExcludeFirstIndex,
		NewSink:    sinks.factory,
	})
	require.NoError(t, err)
	require.Equal(t, 3, v.NumFrames)
	require.Equal(t, filepath.Join(dir, "000001_bbx.jpg"), v.Frames[0])
}

func TestAssembleCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 3, 64, 32, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := filepath.Join(dir, "out.mp4")
	sinks := &fakeSinks{}
	_, err := Assemble(ctx, log.NewTestingLog(t), AssembleParams{
		FrameDir:   dir,
		OutputPath: out,
		FPS:        2,
		Codec:      mp4v(t),
		NewSink:    sinks.factory,
	})
	require.ErrorIs(t, err, context.Canceled)
	require.NoFileExists(t, out)
}

func TestAssembleInvalidFPS(t *testing.T) {
	_, err := Assemble(context.Background(), log.NewTestingLog(t), AssembleParams{FrameDir: t.TempDir(), FPS: 0})
	require.ErrorIs(t, err, ErrInvalidFPS)
}

func TestListFrames(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 3, 16, 16, true)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000000_bbx.json"), []byte("[]"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.jpg"), []byte{}, 0644))

	raw, err := ListFrames(dir, FrameRaw, ExcludeNothing)
	require.NoError(t, err)
	require.Len(t, raw, 3)

	ann, err := ListFrames(dir, FrameAnnotated, ExcludeNothing)
	require.NoError(t, err)
	require.Len(t, ann, 3)
	require.Equal(t, "000002_bbx.jpg", filepath.Base(ann[2]))
}

func TestParseFourCC(t *testing.T) {
	c, err := ParseFourCC("MP4V")
	require.NoError(t, err)
	require.Equal(t, "mpeg4", c.Encoder)
	c, err = ParseFourCC("avc1")
	require.NoError(t, err)
	require.Equal(t, "libx264", c.Encoder)
	_, err = ParseFourCC("xvid")
	require.Error(t, err)
}

func TestConvertedName(t *testing.T) {
	require.Equal(t, filepath.Join("videos", "converted_scene-0061.mp4"), ConvertedName(filepath.Join("videos", "scene-0061.mp4")))
}

// Exercises the real encoder when ffmpeg is installed
func TestAssembleFFmpeg(t *testing.T) {
	if !HaveApp("ffmpeg") || !HaveApp("ffprobe") {
		t.Skip("ffmpeg not available")
	}
	dir := t.TempDir()
	writeFrames(t, dir, 5, 200, 100, false)
	out := filepath.Join(dir, "scene.mp4")
	v, err := Assemble(context.Background(), log.NewTestingLog(t), AssembleParams{
		FrameDir:   dir,
		OutputPath: out,
		FPS:        2,
		Codec:      mp4v(t),
	})
	require.NoError(t, err)
	require.Equal(t, 5, v.NumFrames)
	n, err := ExtractFrameCount(out)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	d, err := ExtractVideoDuration(out)
	require.NoError(t, err)
	require.InDelta(t, 2.5, d.Seconds(), 0.2)
}

func TestTranscodeDirSkipsConverted(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "converted_scene-0001.mp4"), []byte{}, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scene-0002.partial.mp4"), []byte{}, 0644))
	converted, failed, err := TranscodeDir(log.NewTestingLog(t), dir)
	require.NoError(t, err)
	require.Equal(t, 0, failed)
	require.Len(t, converted, 0)
}
