package ports

import (
	"context"

	"github.com/jbctechsolutions/wikisync/internal/domain/syncrun"
)

// RunSummary is a stored run without its file results.
type RunSummary struct {
	RunID       string
	Team        string
	Source      string
	Destination string
	DryRun      bool
	Status      syncrun.Status
	Created     int
	Updated     int
	Skipped     int
	Failed      int
	StartedAt   string
	CompletedAt string
	Error       string
}

// LedgerPort persists the history of sync runs.
// Implementations might use SQLite or keep records in memory.
type LedgerPort interface {
	// StartRun records a run as running.
	StartRun(ctx context.Context, report *syncrun.Report) error

	// RecordFile appends one file outcome to a run.
	RecordFile(ctx context.Context, runID string, res syncrun.FileResult) error

	// FinishRun stores the final status and counts of a run.
	FinishRun(ctx context.Context, report *syncrun.Report) error

	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)

	// RunFiles returns the file outcomes of one run in processing order.
	RunFiles(ctx context.Context, runID string) ([]syncrun.FileResult, error)
}
