// Package archive reads exported content packages.
package archive

import (
	"errors"
	"time"
)

// ErrUnsafePath is returned when an entry would extract outside the destination.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// Entry describes one file inside an archive.
type Entry struct {
	Name     string
	Size     int64
	Modified time.Time
	IsDir    bool
}

// Archiver abstracts archive operations so the importer can be tested
// without real zip files.
type Archiver interface {
	// List returns the entries of the archive at path in stored order.
	List(path string) ([]Entry, error)

	// Extract decompresses every entry of the archive at path under destDir.
	Extract(path, destDir string) error
}
