package ports

import "github.com/jbctechsolutions/wikisync/internal/domain/document"

// FileSourcePort discovers and reads local files.
type FileSourcePort interface {
	// DirExists reports whether root exists and is a directory.
	DirExists(root string) (bool, error)

	// Discover returns the syncable files under root, most recently modified first.
	Discover(root string) ([]document.LocalFile, error)

	// Stat returns a LocalFile for a single path.
	Stat(path string) (document.LocalFile, error)

	// ReadBody returns the full text of a file.
	ReadBody(path string) (string, error)
}
