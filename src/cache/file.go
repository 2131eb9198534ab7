package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/apimgr/idealista/src/model"
)

// FileStore keeps the token as a JSON file at a fixed per-user path.
// Replacement is atomic: the new token is written to a temp file and
// renamed over the old one.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed token store.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get reads the cached token. A missing file is a miss; a malformed file is
// logged and also treated as a miss so a corrupt cache never blocks the CLI.
func (s *FileStore) Get(ctx context.Context) (*model.CachedToken, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		slog.Warn("token cache unreadable, treating as miss", "path", s.path, "error", err)
		return nil, nil
	}

	var token model.CachedToken
	if err := json.Unmarshal(data, &token); err != nil {
		slog.Warn("token cache malformed, treating as miss", "path", s.path, "error", err)
		return nil, nil
	}
	return &token, nil
}

// Put atomically replaces the cached token.
func (s *FileStore) Put(ctx context.Context, token model.CachedToken) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write token cache: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace token cache: %w", err)
	}
	return nil
}

// Clear removes the token file.
func (s *FileStore) Clear(ctx context.Context) error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token cache: %w", err)
	}
	return nil
}
