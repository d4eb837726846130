// Package ports defines the application layer port interfaces following hexagonal architecture.
// Ports are abstractions that allow the sync engine to interact with the wiki API,
// the local filesystem and the run ledger without knowing their implementation details.
package ports

import (
	"context"

	"github.com/jbctechsolutions/wikisync/internal/domain/document"
	"github.com/jbctechsolutions/wikisync/internal/domain/ratelimit"
)

// SearchQuery is one page of a document search.
type SearchQuery struct {
	Query   string
	Page    int
	PerPage int
}

// SearchResult is one page of search results plus the response's rate-limit state.
type SearchResult struct {
	Documents []document.RemoteDocument
	NextPage  int // 0 when there is no further page
	RateLimit ratelimit.Snapshot
}

// NewDocument is the payload of a create call.
type NewDocument struct {
	Category string
	Title    string
	Body     string
	Tags     []string
	WIP      bool
	Message  string
}

// DocumentUpdate is the payload of an update call. Category is not sent:
// the update keeps the document where the search found it.
type DocumentUpdate struct {
	Title   string
	Body    string
	Tags    []string
	WIP     *bool
	Message string
}

// WriteResult is the outcome of a create or update call.
type WriteResult struct {
	Document  document.RemoteDocument
	FullName  string
	RateLimit ratelimit.Snapshot
}

// WikiClientPort is the remote document store.
//
// A 429 response is reported as *ratelimit.ExceededError; any other non-2xx
// status as a REMOTE_REJECTED domain error. Implementations must not retry.
type WikiClientPort interface {
	SearchDocuments(ctx context.Context, team string, q SearchQuery) (*SearchResult, error)
	CreateDocument(ctx context.Context, team string, doc NewDocument) (*WriteResult, error)
	UpdateDocument(ctx context.Context, team string, number int, doc DocumentUpdate) (*WriteResult, error)
}
