package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/cyclopcam/scenereel/pkg/log"
)

var ErrNoPublicUrl = errors.New("No public URL")
var ErrInvalidName = errors.New("Invalid file name")

// Storage is an abstraction of a blob store (eg GCS)
type Storage interface {
	// When finished, you must close the WriteCloser. The blob is only visible after a successful Close.
	WriteFile(ctx context.Context, name string) (io.WriteCloser, error)

	// When finished, you must close File.Reader
	ReadFile(ctx context.Context, name string) (*File, error)

	DeleteFile(ctx context.Context, name string) error

	URL(name string) (string, error)
}

// File is an element in blob storage.
type File struct {
	Reader     io.ReadCloser
	ModifiedAt time.Time
	Size       int64
}

func WriteFile(ctx context.Context, s Storage, name string, content io.Reader) error {
	f, err := s.WriteFile(ctx, name)
	if err != nil {
		return err
	}
	_, err = io.Copy(f, content)
	errClose := f.Close()
	if err != nil {
		return err
	}
	return errClose
}

func ReadFile(ctx context.Context, s Storage, name string) ([]byte, error) {
	f, err := s.ReadFile(ctx, name)
	if err != nil {
		return nil, err
	}
	defer f.Reader.Close()
	return io.ReadAll(f.Reader)
}

// Open interprets target as either gs://bucket[/prefix] or a local directory
func Open(log log.Log, target string) (Storage, error) {
	if rest, ok := strings.CutPrefix(target, "gs://"); ok {
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return nil, ErrInvalidName
		}
		return NewStorageGCS(log, bucket, prefix, false)
	}
	return NewStorageFS(log, target)
}

func validName(name string) bool {
	return name != "" && !strings.Contains(name, "..")
}
