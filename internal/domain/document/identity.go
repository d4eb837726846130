// Package document defines the addressing model shared by local files and
// remote wiki documents.
package document

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// textExtension matches the extensions stripped from a file name to form a title.
var textExtension = regexp.MustCompile(`\.(txt|md)$`)

// Identity is the (category, title) address of a document within a team.
type Identity struct {
	Category string `json:"category"`
	Title    string `json:"title"`
}

// FullName returns the address as category/title.
func (i Identity) FullName() string {
	return path.Join(i.Category, i.Title)
}

// Key returns the address with surrounding separators trimmed.
// The remote reports categories without a leading slash, so lookups and
// collision tracking compare keys rather than raw categories.
func (i Identity) Key() string {
	return strings.Trim(i.FullName(), "/")
}

// String implements fmt.Stringer.
func (i Identity) String() string {
	return i.FullName()
}

// Resolve derives the remote identity of filePath.
//
// sourceRoot is removed only when it prefixes filePath. The .txt/.md
// extension and one leading separator are stripped, doubled separators are
// collapsed, and the remainder is placed under destinationRoot. The last
// segment becomes the title and everything before it the category.
func Resolve(filePath, sourceRoot, destinationRoot string) Identity {
	name := filepath.ToSlash(filePath)
	root := filepath.ToSlash(sourceRoot)
	if root != "" && strings.HasPrefix(name, root) {
		name = name[len(root):]
	}

	name = textExtension.ReplaceAllString(name, "")
	name = strings.TrimPrefix(name, "/")
	name = strings.TrimSpace(name)
	name = collapseSeparators(name)

	full := collapseSeparators(strings.TrimSuffix(filepath.ToSlash(destinationRoot), "/") + "/" + name)

	return Identity{
		Category: path.Dir(full),
		Title:    path.Base(full),
	}
}

func collapseSeparators(s string) string {
	for strings.Contains(s, "//") {
		s = strings.ReplaceAll(s, "//", "/")
	}
	return s
}

// LocalFile is a file discovered under the source root.
type LocalFile struct {
	Path         string
	ModifiedTime time.Time
}

// RemoteDocument is the addressing part of a document held by the wiki.
// Number is the server-assigned identity used for updates.
type RemoteDocument struct {
	Number   int    `json:"number"`
	Category string `json:"category"`
	Title    string `json:"title"`
	WIP      bool   `json:"wip"`
}

// Identity returns the document's address.
func (d RemoteDocument) Identity() Identity {
	return Identity{Category: d.Category, Title: d.Title}
}

// Matches reports whether the document sits at the given address.
func (d RemoteDocument) Matches(id Identity) bool {
	return d.Identity().Key() == id.Key()
}
