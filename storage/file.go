package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/quorum-vault/interfaces"
)

// FileStore implements a key-value store using the local file system.
// Every key maps to one file below the base directory.
type FileStore struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileStore creates a file store rooted at baseDir, creating the directory if needed.
func NewFileStore(baseDir string, log *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FileStore{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Get reads the file for key. Returns ErrKeyNotFound if the file doesn't exist.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	filePath, err := s.filePath(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, interfaces.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	s.log.Debug("Fetched value from file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

// Put writes value to the file for key. The write goes through a temporary file
// and a rename so readers never observe a partially written value.
func (s *FileStore) Put(ctx context.Context, key string, value []byte) error {
	filePath, err := s.filePath(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	s.log.Debug("Stored value in file",
		slog.String("path", filePath),
		slog.Int("size", len(value)))

	return nil
}

// Available checks if the file store is accessible by verifying the base directory exists.
func (s *FileStore) Available(ctx context.Context) bool {
	_, err := os.Stat(s.baseDir)
	if err != nil {
		s.log.Debug("File store unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this store.
func (s *FileStore) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(s.baseDir))
}

// LocationURI returns the URI that identifies this store.
func (s *FileStore) LocationURI() string {
	return s.locationURI
}

func (s *FileStore) filePath(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(key)), nil
}
