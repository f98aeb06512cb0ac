package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// BlobStorage is the boundary for proposal files: store, delete, read back.
type BlobStorage interface {
	Store(filename string, data []byte) (string, error)
	Delete(path string) error
	Read(path string) ([]byte, error)
	AbsPath(path string) string
}

// LocalStorage keeps blobs on the local disk under a base directory. Stored
// paths are relative so the base directory can move between environments.
type LocalStorage struct {
	baseDir string
}

func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if err := os.MkdirAll(filepath.Join(baseDir, "proposals"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Store writes the data under a random name, keeping the original extension.
func (s *LocalStorage) Store(filename string, data []byte) (string, error) {
	rel := filepath.Join("proposals", uuid.NewString()+filepath.Ext(filename))
	if err := os.WriteFile(filepath.Join(s.baseDir, rel), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to store file: %w", err)
	}
	return rel, nil
}

func (s *LocalStorage) Delete(path string) error {
	err := os.Remove(filepath.Join(s.baseDir, path))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *LocalStorage) Read(path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.baseDir, path))
}

// AbsPath returns the on-disk path, used to attach the file to outgoing mail.
func (s *LocalStorage) AbsPath(path string) string {
	return filepath.Join(s.baseDir, path)
}
