// Package storage keeps uploaded label scans on the local filesystem and
// maps them to public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/pillchecker/pillchecker/interfaces"
	"github.com/pillchecker/pillchecker/logging"
)

var _ interfaces.FileStorage = (*LocalStorage)(nil)

var (
	// ErrNotFound is returned when a stored file does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrInvalidPath is returned for paths that escape the storage root.
	ErrInvalidPath = errors.New("invalid storage path")
)

// LocalStorage stores files under a base directory.
type LocalStorage struct {
	basePath string
	baseURL  string
}

// NewLocalStorage creates the base directory if needed. baseURL prefixes
// the returned public URLs, for example "/storage".
func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}
	logging.Info("Storage initialized", "path", abs)
	return &LocalStorage{basePath: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// BasePath returns the absolute storage root.
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

// resolve cleans a slash-separated relative path and joins it to the root.
func (s *LocalStorage) resolve(relPath string) (string, string, error) {
	clean := path.Clean(strings.TrimPrefix(strings.ReplaceAll(relPath, "\\", "/"), "/"))
	if clean == "." || !filepath.IsLocal(filepath.FromSlash(clean)) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, relPath)
	}
	return clean, filepath.Join(s.basePath, filepath.FromSlash(clean)), nil
}

// Upload writes content to relPath and returns its public URL. The file is
// written to a temporary name first and renamed into place.
func (s *LocalStorage) Upload(ctx context.Context, content []byte, relPath, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, full, err := s.resolve(relPath)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", clean, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", clean, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", clean, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		return "", fmt.Errorf("failed to move %s into place: %w", clean, err)
	}

	logging.Debug("File stored", "path", clean, "bytes", len(content), "content_type", contentType)
	return s.PublicURL(clean), nil
}

// Download returns the content stored at relPath.
func (s *LocalStorage) Download(ctx context.Context, relPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, full, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, clean)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", clean, err)
	}
	return data, nil
}

// Delete removes the file at relPath.
func (s *LocalStorage) Delete(ctx context.Context, relPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, full, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	err = os.Remove(full)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, clean)
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", clean, err)
	}
	logging.Debug("File deleted", "path", clean)
	return nil
}

// PublicURL returns the URL a stored relative path is served under.
func (s *LocalStorage) PublicURL(relPath string) string {
	return s.baseURL + "/" + strings.TrimPrefix(relPath, "/")
}

// RelPath reverses PublicURL. It reports false for URLs outside baseURL.
func (s *LocalStorage) RelPath(publicURL string) (string, bool) {
	rel, ok := strings.CutPrefix(publicURL, s.baseURL+"/")
	if !ok || rel == "" {
		return "", false
	}
	return rel, true
}

// ScanPath returns a fresh relative path for a profile's scan, keeping the
// uploaded file's extension.
func ScanPath(profileID, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if len(ext) > 6 || strings.ContainsAny(ext, " /") {
		ext = ""
	}
	return path.Join("medications", profileID, uuid.NewString()+ext)
}
