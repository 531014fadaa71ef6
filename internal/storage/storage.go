package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Storage persists avatar files under a reference name and resolves a
// reference to a publicly fetchable URL.
type Storage interface {
	// Save stores the file contents under the given reference name.
	Save(name string, file io.Reader) error

	// URL returns the public URL for the given reference name.
	URL(name string) string
}

// LocalStorage writes files to a directory on disk. Files are served by the
// router under /static/profile_pics/.
type LocalStorage struct {
	dir string
}

func NewLocalStorage(dir string) (*LocalStorage, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStorage{dir: dir}, nil
}

// Dir returns the directory files are written to, for static file serving.
func (s *LocalStorage) Dir() string {
	return s.dir
}

func (s *LocalStorage) Save(name string, file io.Reader) error {
	// filepath.Base strips any path components smuggled into the name
	path := filepath.Join(s.dir, filepath.Base(name))

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	_, err = io.Copy(out, file)
	if err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}

	return out.Close()
}

func (s *LocalStorage) URL(name string) string {
	return "/static/profile_pics/" + filepath.Base(name)
}
