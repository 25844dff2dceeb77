// Package storage confines build reads and writes to a root directory.
package storage

// Provider is the interface for rooted file operations. All paths are
// relative to the provider root; paths escaping it are rejected.
type Provider interface {
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// ReadIfExists returns nil content and no error when path does not exist.
	ReadIfExists(path string) ([]byte, error)
	// Exists reports whether path exists.
	Exists(path string) bool
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Abs returns the absolute location of path.
	Abs(path string) (string, error)
}
