package videox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/scenereel/pkg/log"
)

var ErrFrameCountChanged = errors.New("Transcoded video has a different number of frames")

// ConvertedPrefix is prepended to the file name of a transcoded video
const ConvertedPrefix = "converted_"

// ConvertedName returns the path of the browser-compatible copy of a video
func ConvertedName(srcFilename string) string {
	dir, name := filepath.Split(srcFilename)
	ext := filepath.Ext(name)
	return filepath.Join(dir, ConvertedPrefix+strings.TrimSuffix(name, ext)+".mp4")
}

// Transcode a video into H.264 with yuv420p, which plays in every browser.
// The output is written next to a temporary name and renamed when ffmpeg succeeds,
// and the copy holds exactly as many frames as the source.
func TranscodeCompatible(srcFilename, dstFilename string) error {
	ext := filepath.Ext(dstFilename)
	partial := strings.TrimSuffix(dstFilename, ext) + ".partial" + ext
	args := []string{
		"-i",
		srcFilename,
		"-c:v",
		"libx264",
		"-pix_fmt",
		"yuv420p",
		"-y", // overwrite output file
		partial,
	}
	if _, err := RunAppCombinedOutput("ffmpeg", args); err != nil {
		os.Remove(partial)
		return err
	}
	srcFrames, err := ExtractFrameCount(srcFilename)
	if err != nil {
		os.Remove(partial)
		return err
	}
	dstFrames, err := ExtractFrameCount(partial)
	if err != nil {
		os.Remove(partial)
		return err
	}
	if srcFrames != dstFrames {
		os.Remove(partial)
		return fmt.Errorf("%w: %v has %v, %v has %v", ErrFrameCountChanged, filepath.Base(srcFilename), srcFrames, filepath.Base(dstFilename), dstFrames)
	}
	return os.Rename(partial, dstFilename)
}

// TranscodeDir converts every .mp4 in dir that is not itself a converted copy.
// Failures are logged and counted, and do not stop the remaining files.
func TranscodeDir(logger log.Log, dir string) (converted []string, failed int, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, err
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".mp4") || strings.HasPrefix(name, ConvertedPrefix) || strings.Contains(name, ".partial") {
			continue
		}
		src := filepath.Join(dir, name)
		dst := ConvertedName(src)
		logger.Infof("Transcoding %v -> %v", name, filepath.Base(dst))
		if err := TranscodeCompatible(src, dst); err != nil {
			logger.Errorf("Transcoding %v failed: %v", name, err)
			failed++
			continue
		}
		if d, err := ExtractVideoDuration(dst); err == nil {
			logger.Infof("Wrote %v (%.1f seconds)", filepath.Base(dst), d.Seconds())
		}
		converted = append(converted, dst)
	}
	return converted, failed, nil
}
