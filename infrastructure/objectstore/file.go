package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileStore serves source objects from a local directory.
type FileStore struct {
	baseDir string
}

func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

// Open opens the object named by ref positioned at offset and returns its
// total size.
func (s *FileStore) Open(ctx context.Context, ref string, offset int64) (io.ReadCloser, int64, error) {
	clean := filepath.Clean("/" + ref)
	if strings.Contains(clean, "..") {
		return nil, 0, fmt.Errorf("invalid object ref %q", ref)
	}
	path := filepath.Join(s.baseDir, clean)
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open source object %q: %w", ref, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("failed to stat source object %q: %w", ref, err)
	}
	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			_ = f.Close()
			return nil, 0, fmt.Errorf("failed to seek source object %q to %d: %w", ref, offset, err)
		}
	}
	return f, info.Size(), nil
}
