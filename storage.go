package rxp

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Storage is where a server reads the files it serves and a client writes
// the files it receives.
type Storage interface {
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
}

type dirStorage struct {
	root string
}

// NewDirStorage returns a Storage confined to root.
func NewDirStorage(root string) Storage {
	if root == "" {
		root = "."
	}
	return &dirStorage{root: root}
}

func (s *dirStorage) resolve(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+name)))
}

func (s *dirStorage) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(s.resolve(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	return data, err
}

func (s *dirStorage) Write(name string, data []byte) error {
	target := s.resolve(name)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return os.WriteFile(target, data, 0o644)
}

// receivedFileName is the name a downloaded file is stored under: "notes.txt"
// becomes "notes1.txt".
func receivedFileName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "1" + ext
}
