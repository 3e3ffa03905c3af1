// Package storage defines the content-directory abstraction the registry
// reads its Markdown sources from.
package storage

import "time"

// FileMeta is lightweight metadata for one Markdown source on disk.
type FileMeta struct {
	Path     string // relative to the content root
	Checksum string
	ModTime  time.Time
}

// Provider is the interface for content file operations.
type Provider interface {
	// List walks dir (relative to the content root) and returns metadata
	// for every .md file.
	List(dir string) ([]FileMeta, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root). Used by
	// post scaffolding; the registry itself never writes.
	Write(path string, content []byte) error
}
