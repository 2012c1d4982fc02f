// Package storage writes a run's downloaded images onto the local
// filesystem, so the output outlives the remote service's URL lifetime.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cinegen/cinegen/internal/domain"
)

// Dir is an output directory rooted at a fixed base path.
type Dir struct {
	basePath string
}

// NewDir ensures basePath exists and returns a Dir rooted there.
func NewDir(basePath string) (*Dir, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &Dir{basePath: basePath}, nil
}

// BasePath returns the configured root directory.
func (d *Dir) BasePath() string {
	if d == nil {
		return ""
	}
	return d.basePath
}

// WriteScene stores one downloaded image under the scene's canonical
// filename and returns that name.
func (d *Dir) WriteScene(ordinal int, data []byte) (string, error) {
	return d.Write(domain.SceneFilename(ordinal), data)
}

// Write persists data at the given relative key and returns the cleaned key.
// Keys are sanitized so they cannot escape the base path.
func (d *Dir) Write(key string, data []byte) (string, error) {
	if d == nil {
		return "", errors.New("storage: no directory configured")
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(d.basePath, filepath.FromSlash(cleanKey))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return cleanKey, nil
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
