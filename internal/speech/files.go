package speech

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidName = errors.New("invalid audio file name")
	ErrNotFound    = errors.New("audio file not found")
)

// AudioDir is the directory synthesized files are written to and served from.
type AudioDir struct {
	dir string
}

func NewAudioDir(dir string) (*AudioDir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir %s: %w", dir, err)
	}
	return &AudioDir{dir: dir}, nil
}

func (d *AudioDir) Dir() string { return d.dir }

// New reserves a fresh file name.
func (d *AudioDir) New() (filename, path string) {
	filename = uuid.NewString() + ".wav"
	return filename, filepath.Join(d.dir, filename)
}

// Lookup resolves a served file name to its path. Names that would leave
// the directory are rejected.
func (d *AudioDir) Lookup(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") || strings.ContainsRune(filename, '\\') {
		return "", ErrInvalidName
	}
	path := filepath.Join(d.dir, filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", ErrNotFound
	}
	return path, nil
}
