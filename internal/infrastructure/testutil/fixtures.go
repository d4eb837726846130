package testutil

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/jbctechsolutions/wikisync/internal/application/ports"
	"github.com/jbctechsolutions/wikisync/internal/domain/document"
	"github.com/jbctechsolutions/wikisync/internal/domain/errors"
	"github.com/jbctechsolutions/wikisync/internal/domain/ratelimit"
)

// Wiki operations recorded by FakeWiki.
const (
	OpSearch = "search"
	OpCreate = "create"
	OpUpdate = "update"
)

// WikiCall is one call received by FakeWiki.
type WikiCall struct {
	Op     string
	Team   string
	Query  ports.SearchQuery
	Number int
	Create ports.NewDocument
	Update ports.DocumentUpdate
}

var (
	onNameQuery = regexp.MustCompile(`^on:"([^"]*)" name:"([^"]*)"$`)
	inQuery     = regexp.MustCompile(`^in:"([^"]*)"$`)
)

// FakeWiki is an in-memory WikiClientPort. Like the real service it stores
// categories without a leading slash and answers name:"x" searches with
// partial matches.
type FakeWiki struct {
	// RateLimit is attached to every successful response.
	RateLimit ratelimit.Snapshot

	mu     sync.Mutex
	docs   []document.RemoteDocument
	next   int
	calls  []WikiCall
	queued map[string][]error
}

// NewFakeWiki creates a FakeWiki holding docs.
func NewFakeWiki(docs ...document.RemoteDocument) *FakeWiki {
	w := &FakeWiki{next: 1, queued: make(map[string][]error)}
	for _, d := range docs {
		w.add(d)
	}
	return w
}

func (w *FakeWiki) add(d document.RemoteDocument) document.RemoteDocument {
	d.Category = strings.Trim(d.Category, "/")
	if d.Number == 0 {
		d.Number = w.next
	}
	if d.Number >= w.next {
		w.next = d.Number + 1
	}
	w.docs = append(w.docs, d)
	return d
}

// Fail queues err as the result of the next call of op.
func (w *FakeWiki) Fail(op string, errs ...error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queued[op] = append(w.queued[op], errs...)
}

// Calls returns every recorded call.
func (w *FakeWiki) Calls() []WikiCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]WikiCall(nil), w.calls...)
}

// Count returns how many calls of op were received.
func (w *FakeWiki) Count(op string) int {
	n := 0
	for _, c := range w.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Documents returns the stored documents.
func (w *FakeWiki) Documents() []document.RemoteDocument {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]document.RemoteDocument(nil), w.docs...)
}

func (w *FakeWiki) record(c WikiCall) error {
	w.calls = append(w.calls, c)
	if q := w.queued[c.Op]; len(q) > 0 {
		w.queued[c.Op] = q[1:]
		return q[0]
	}
	return nil
}

// SearchDocuments implements ports.WikiClientPort.
func (w *FakeWiki) SearchDocuments(_ context.Context, team string, q ports.SearchQuery) (*ports.SearchResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.record(WikiCall{Op: OpSearch, Team: team, Query: q}); err != nil {
		return nil, err
	}

	var hits []document.RemoteDocument
	switch {
	case onNameQuery.MatchString(q.Query):
		m := onNameQuery.FindStringSubmatch(q.Query)
		category, name := strings.Trim(m[1], "/"), m[2]
		for _, d := range w.docs {
			if d.Category == category && strings.Contains(d.Title, name) {
				hits = append(hits, d)
			}
		}
	case inQuery.MatchString(q.Query):
		ns := strings.Trim(inQuery.FindStringSubmatch(q.Query)[1], "/")
		for _, d := range w.docs {
			if d.Category == ns || strings.HasPrefix(d.Category, ns+"/") {
				hits = append(hits, d)
			}
		}
	default:
		return nil, fmt.Errorf("fake wiki: unsupported query %q", q.Query)
	}

	page, perPage := q.Page, q.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	start := (page - 1) * perPage
	if start > len(hits) {
		start = len(hits)
	}
	end := start + perPage
	if end > len(hits) {
		end = len(hits)
	}

	res := &ports.SearchResult{
		Documents: append([]document.RemoteDocument(nil), hits[start:end]...),
		RateLimit: w.RateLimit,
	}
	if end < len(hits) {
		res.NextPage = page + 1
	}
	return res, nil
}

// CreateDocument implements ports.WikiClientPort.
func (w *FakeWiki) CreateDocument(_ context.Context, team string, doc ports.NewDocument) (*ports.WriteResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.record(WikiCall{Op: OpCreate, Team: team, Create: doc}); err != nil {
		return nil, err
	}

	d := w.add(document.RemoteDocument{Category: doc.Category, Title: doc.Title, WIP: doc.WIP})
	return &ports.WriteResult{Document: d, FullName: d.Identity().FullName(), RateLimit: w.RateLimit}, nil
}

// UpdateDocument implements ports.WikiClientPort.
func (w *FakeWiki) UpdateDocument(_ context.Context, team string, number int, doc ports.DocumentUpdate) (*ports.WriteResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.record(WikiCall{Op: OpUpdate, Team: team, Number: number, Update: doc}); err != nil {
		return nil, err
	}

	for i := range w.docs {
		if w.docs[i].Number == number {
			if doc.Title != "" {
				w.docs[i].Title = doc.Title
			}
			d := w.docs[i]
			return &ports.WriteResult{Document: d, FullName: d.Identity().FullName(), RateLimit: w.RateLimit}, nil
		}
	}
	return nil, errors.NewRemoteRejected("update post", 404, "Not found")
}

// RateLimited returns the error a 429 response produces.
func RateLimited(snap ratelimit.Snapshot) error {
	return &ratelimit.ExceededError{Snapshot: snap, Message: "Too Many Requests"}
}
