package snapshot

import (
	"os"
	"path/filepath"
)

// FileSnapshot captures the identity and modification time of a single file at
// one observation instant.
type FileSnapshot struct {
	// Name is the canonical absolute path of the file. It is empty if the file
	// didn't exist at the observation instant.
	Name string
	// LastModified is the file's modification time in milliseconds since the
	// Unix epoch.
	LastModified int64
}

// NewFileSnapshot observes the file at the specified path. If the file can't
// be observed (e.g. it was removed between enumeration and observation), then
// an invalid (empty) snapshot is returned.
func NewFileSnapshot(path string) *FileSnapshot {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return &FileSnapshot{}
	}
	info, err := os.Stat(absolute)
	if err != nil || info.IsDir() {
		return &FileSnapshot{}
	}
	return newFileSnapshotFromInfo(absolute, info)
}

// newFileSnapshotFromInfo creates a snapshot from already-queried metadata.
func newFileSnapshotFromInfo(absolute string, info os.FileInfo) *FileSnapshot {
	return &FileSnapshot{
		Name:         absolute,
		LastModified: info.ModTime().UnixNano() / int64(1e6),
	}
}

// Valid returns whether or not the snapshot describes an existing file.
func (s *FileSnapshot) Valid() bool {
	return s != nil && s.Name != ""
}

// Equal compares two snapshots structurally on name and modification time.
func (s *FileSnapshot) Equal(other *FileSnapshot) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.Name == other.Name && s.LastModified == other.LastModified
}
