package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/scenereel/pkg/log"
)

// Publisher copies a finished scene's artifacts into blob storage
type Publisher struct {
	Store Storage
	Log   log.Log
}

func NewPublisher(log log.Log, store Storage) *Publisher {
	return &Publisher{Store: store, Log: log}
}

// PublishScene uploads the videos as videos/<base>, and every sidecar in frameDir
// as image/<scene>/<base>. Returns the names that were written.
func (p *Publisher) PublishScene(ctx context.Context, sceneName, frameDir string, videos []string) ([]string, error) {
	written := []string{}
	for _, v := range videos {
		name := "videos/" + filepath.Base(v)
		if err := p.copyFile(ctx, v, name); err != nil {
			return written, err
		}
		written = append(written, name)
	}
	if frameDir != "" {
		entries, err := os.ReadDir(frameDir)
		if err != nil {
			return written, err
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			if err := ctx.Err(); err != nil {
				return written, err
			}
			name := "image/" + sceneName + "/" + e.Name()
			if err := p.copyFile(ctx, filepath.Join(frameDir, e.Name()), name); err != nil {
				return written, err
			}
			written = append(written, name)
		}
	}
	p.Log.Infof("Published %v files for %v", len(written), sceneName)
	return written, nil
}

func (p *Publisher) copyFile(ctx context.Context, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteFile(ctx, p.Store, name, f); err != nil {
		return fmt.Errorf("Failed to publish %v: %w", name, err)
	}
	return nil
}
