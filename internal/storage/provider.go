// Package storage defines the file-system abstraction over a docs root or project root.
package storage

import "github.com/starford/openkit/internal/models"

// Provider is the interface for root-relative file operations.
type Provider interface {
	// List reads every .md file under dir (relative to root), recursively.
	List(dir string) ([]models.Document, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// MkdirAll creates dir (relative to root) and any missing parents.
	MkdirAll(dir string) error
	// Exists reports whether path (relative to root) exists.
	Exists(path string) bool
	// Count returns the number of regular files under dir, recursively.
	Count(dir string) int
	// Root returns the absolute root directory.
	Root() string
}
