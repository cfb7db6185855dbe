// Package storage defines the layer catalogue file-system abstraction.
package storage

import "github.com/starford/layerline/internal/models"

// Provider is the interface for catalogue file operations. Paths are
// relative to the catalogue root.
type Provider interface {
	// List returns metadata for every layer definition file under dir.
	List(dir string) ([]models.LayerMetadata, error)
	// Read returns the raw bytes of the definition at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the definition at path.
	Write(path string, content []byte) error
	// Delete removes the definition at path.
	Delete(path string) error
}
