package event

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	dErrors "custodia/pkg/domain-errors"
)

// LocalImageStore writes evidence photos to a directory on disk. The file is
// written before the event row is inserted, so a stored event always has its
// photo on disk.
type LocalImageStore struct {
	dir string
}

func NewLocalImageStore(dir string) (*LocalImageStore, error) {
	if dir == "" {
		return nil, dErrors.New(dErrors.CodeInternal, "image directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create image directory")
	}
	return &LocalImageStore{dir: dir}, nil
}

func (s *LocalImageStore) Save(_ context.Context, name string, data []byte) (string, error) {
	path := filepath.Join(s.dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("failed to write image %s", name))
	}
	return path, nil
}
