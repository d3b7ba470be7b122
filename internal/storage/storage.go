package storage

import (
	"errors"
	"path"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidPath = errors.New("invalid storage path")
	ErrNotFound    = errors.New("file not found")
)

// Storage keeps receipt images under a per-principal namespace. Paths are
// relative and slash separated: "<principal>/<name>".
type Storage interface {
	// Store saves data under a fresh unique name and returns its path.
	Store(principalID uuid.UUID, data []byte, ext string) (string, error)
	// Attach saves data next to an existing path, replacing its extension with suffix.
	Attach(path, suffix string, data []byte) (string, error)
	Exists(path string) (bool, error)
	Read(path string) ([]byte, error)
	Delete(path string) error
}

// CleanPath canonicalizes a client supplied path and rejects anything that
// could escape the storage root.
func CleanPath(raw string) (string, error) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "\\", "/"))
	if raw == "" || strings.HasPrefix(raw, "/") || strings.ContainsRune(raw, 0) {
		return "", ErrInvalidPath
	}
	clean := path.Clean(raw)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidPath
	}
	return clean, nil
}

// Owner returns the principal namespace a clean path lives in.
func Owner(clean string) (string, error) {
	owner, name, ok := strings.Cut(clean, "/")
	if !ok || owner == "" || name == "" {
		return "", ErrInvalidPath
	}
	return owner, nil
}

func newName(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return "receipt_" + strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ToLower(ext)
}
