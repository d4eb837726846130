// Package filesystem discovers and reads the local files to sync.
package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/jbctechsolutions/wikisync/internal/domain/document"
)

// Default discovery filters.
var (
	DefaultExtensions  = []string{".txt", ".md"}
	DefaultExcludeDirs = []string{"node_modules", "log", "logs", "tmp"}
)

// Discoverer lists syncable files under a source root.
type Discoverer struct {
	fs         afero.Fs
	extensions map[string]bool
	exclude    map[string]bool
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithExtensions replaces the accepted file extensions (with leading dot).
func WithExtensions(exts ...string) Option {
	return func(d *Discoverer) {
		d.extensions = toSet(exts)
	}
}

// WithExcludeDirs replaces the directory names that are never descended into.
func WithExcludeDirs(names ...string) Option {
	return func(d *Discoverer) {
		d.exclude = toSet(names)
	}
}

// NewDiscoverer creates a Discoverer over fs. A nil fs uses the OS filesystem.
func NewDiscoverer(fs afero.Fs, opts ...Option) *Discoverer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	d := &Discoverer{
		fs:         fs,
		extensions: toSet(DefaultExtensions),
		exclude:    toSet(DefaultExcludeDirs),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = true
	}
	return set
}

// Accepts reports whether path has a syncable extension.
func (d *Discoverer) Accepts(path string) bool {
	return d.extensions[strings.ToLower(filepath.Ext(path))]
}

// Excluded reports whether a directory with this name is skipped.
func (d *Discoverer) Excluded(name string) bool {
	return d.exclude[strings.ToLower(name)]
}

// DirExists reports whether root is an existing directory.
func (d *Discoverer) DirExists(root string) (bool, error) {
	return afero.DirExists(d.fs, root)
}

// Discover walks root and returns every accepted file, most recently
// modified first. Returned paths keep root verbatim as their prefix so the
// name resolver can strip it.
func (d *Discoverer) Discover(root string) ([]document.LocalFile, error) {
	var files []document.LocalFile

	err := afero.Walk(d.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && d.Excluded(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() || !d.Accepts(path) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("failed to relativize %s: %w", path, err)
		}
		files = append(files, document.LocalFile{
			Path:         root + string(filepath.Separator) + rel,
			ModifiedTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].ModifiedTime.Equal(files[j].ModifiedTime) {
			return files[i].ModifiedTime.After(files[j].ModifiedTime)
		}
		return files[i].Path < files[j].Path
	})

	return files, nil
}

// Stat returns the LocalFile for one path.
func (d *Discoverer) Stat(path string) (document.LocalFile, error) {
	info, err := d.fs.Stat(path)
	if err != nil {
		return document.LocalFile{}, err
	}
	if info.IsDir() {
		return document.LocalFile{}, fmt.Errorf("%s is a directory", path)
	}
	return document.LocalFile{Path: path, ModifiedTime: info.ModTime()}, nil
}

// ReadBody returns the text content of path.
func (d *Discoverer) ReadBody(path string) (string, error) {
	data, err := afero.ReadFile(d.fs, path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
