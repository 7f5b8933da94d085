// Package media persists decoded image payloads and hands back file refs.
package media

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store writes image bytes under a directory and returns the file path as ref.
type Store struct {
	dir string
}

// NewStore creates the media directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save decodes a base64 payload (with or without a data-url prefix) and
// writes it to a uuid-named file. Returns the stored path.
func (s *Store) Save(imageB64 string) (string, error) {
	payload := imageB64
	if idx := strings.Index(payload, ";base64,"); idx >= 0 {
		payload = payload[idx+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("invalid image payload: %w", err)
	}
	path := filepath.Join(s.dir, uuid.New().String()+".jpg")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return path, nil
}
