package syncrun

import (
	"time"

	"github.com/jbctechsolutions/wikisync/internal/domain/document"
)

// FileState is the terminal state a file reached during a run.
type FileState string

const (
	StateSkipped  FileState = "skipped"
	StateCreated  FileState = "created"
	StateUpdated  FileState = "updated"
	StateReported FileState = "reported" // dry run
	StateFailed   FileState = "failed"   // only with continue_on_read_error
)

// IsTerminalSuccess reports whether the state counts toward a successful run.
func (s FileState) IsTerminalSuccess() bool {
	switch s {
	case StateSkipped, StateCreated, StateUpdated, StateReported:
		return true
	default:
		return false
	}
}

// FileResult records what happened to one local file.
type FileResult struct {
	Path           string            `json:"path"`
	Identity       document.Identity `json:"identity"`
	State          FileState         `json:"state"`
	DocumentNumber int               `json:"document_number,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// Status of a whole run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Report summarizes a run.
type Report struct {
	RunID       string       `json:"run_id"`
	Request     Request      `json:"-"`
	Status      Status       `json:"status"`
	Files       []FileResult `json:"files"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// NewReport creates a running report.
func NewReport(runID string, req Request, startedAt time.Time) *Report {
	return &Report{
		RunID:     runID,
		Request:   req,
		Status:    StatusRunning,
		StartedAt: startedAt,
	}
}

// Add appends a file result.
func (r *Report) Add(res FileResult) {
	r.Files = append(r.Files, res)
}

// Count returns the number of files in the given state.
func (r *Report) Count(state FileState) int {
	n := 0
	for _, f := range r.Files {
		if f.State == state {
			n++
		}
	}
	return n
}

// Complete marks the run finished. A non-nil err marks it failed.
func (r *Report) Complete(at time.Time, err error) {
	r.CompletedAt = at
	if err != nil {
		r.Status = StatusFailed
		r.Error = err.Error()
		return
	}
	r.Status = StatusCompleted
}

// Duration returns the elapsed time of a finished run.
func (r *Report) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
