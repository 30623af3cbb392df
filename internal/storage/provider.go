// Package storage defines the attachment file-system abstraction.
package storage

import "time"

// FileMeta describes one stored attachment file.
type FileMeta struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for attachment file operations. All paths
// are relative to the data root.
type Provider interface {
	// List returns metadata for every file under dir.
	List(dir string) ([]FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}
