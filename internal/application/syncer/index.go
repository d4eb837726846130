package syncer

import (
	"context"
	"fmt"
	"sort"

	"github.com/jbctechsolutions/wikisync/internal/application/ports"
	"github.com/jbctechsolutions/wikisync/internal/domain/document"
	"github.com/jbctechsolutions/wikisync/internal/domain/ratelimit"
)

// DefaultIndexPageSize is the page size used to enumerate a namespace.
const DefaultIndexPageSize = 100

// Index is the set of documents that exist under a destination namespace.
type Index struct {
	docs map[string]document.RemoteDocument
}

// NewIndex builds an Index from documents. Later duplicates win.
func NewIndex(docs ...document.RemoteDocument) *Index {
	idx := &Index{docs: make(map[string]document.RemoteDocument, len(docs))}
	for _, d := range docs {
		idx.docs[d.Identity().Key()] = d
	}
	return idx
}

// Contains reports whether a document with the same identity exists.
func (i *Index) Contains(id document.Identity) bool {
	_, ok := i.docs[id.Key()]
	return ok
}

// Lookup returns the document with the given identity.
func (i *Index) Lookup(id document.Identity) (document.RemoteDocument, bool) {
	d, ok := i.docs[id.Key()]
	return d, ok
}

// Len returns the number of indexed documents.
func (i *Index) Len() int {
	return len(i.docs)
}

// Documents returns the indexed documents ordered by full name.
func (i *Index) Documents() []document.RemoteDocument {
	out := make([]document.RemoteDocument, 0, len(i.docs))
	for _, d := range i.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].Identity().Key() < out[b].Identity().Key()
	})
	return out
}

// IndexLister enumerates every document under a namespace.
type IndexLister struct {
	client   ports.WikiClientPort
	governor *Governor
	pageSize int
}

// NewIndexLister creates an IndexLister. A non-positive pageSize uses
// DefaultIndexPageSize.
func NewIndexLister(client ports.WikiClientPort, governor *Governor, pageSize int) *IndexLister {
	if pageSize <= 0 {
		pageSize = DefaultIndexPageSize
	}
	return &IndexLister{client: client, governor: governor, pageSize: pageSize}
}

// ListExisting pages through in:"namespace" until an empty page or a page
// shorter than the page size. Every page is governed like any other request.
func (l *IndexLister) ListExisting(ctx context.Context, team, namespace string) (*Index, error) {
	query := fmt.Sprintf(`in:"%s"`, namespace)
	idx := NewIndex()

	for page := 1; ; page++ {
		var result *ports.SearchResult
		err := l.governor.Call(ctx, "list_existing", func(ctx context.Context) (ratelimit.Snapshot, error) {
			res, err := l.client.SearchDocuments(ctx, team, ports.SearchQuery{
				Query:   query,
				Page:    page,
				PerPage: l.pageSize,
			})
			if err != nil {
				return ratelimit.Snapshot{}, err
			}
			result = res
			return res.RateLimit, nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list page %d of %s: %w", page, namespace, err)
		}

		for _, d := range result.Documents {
			idx.docs[d.Identity().Key()] = d
		}
		if len(result.Documents) == 0 || len(result.Documents) < l.pageSize {
			return idx, nil
		}
	}
}
