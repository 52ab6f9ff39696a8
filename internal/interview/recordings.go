package interview

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// DirRecordingStore persists recordings as files in a local directory. It is
// the fallback when no hosted storage client is configured.
type DirRecordingStore struct {
	dir string
}

// NewDirRecordingStore creates a recording store over dir, creating it if
// needed.
func NewDirRecordingStore(dir string) (*DirRecordingStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create recordings directory: %w", err)
	}
	return &DirRecordingStore{dir: dir}, nil
}

// Save writes the recording to {dir}/{name} and returns the file path as the
// storage reference.
func (d *DirRecordingStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	path := filepath.Join(d.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create recording file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to write recording file: %w", err)
	}
	slog.Debug("DirRecordingStore.Save: recording written", "path", path)
	return path, nil
}
