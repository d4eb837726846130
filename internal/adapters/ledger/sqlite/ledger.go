package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jbctechsolutions/wikisync/internal/application/ports"
	"github.com/jbctechsolutions/wikisync/internal/domain/document"
	"github.com/jbctechsolutions/wikisync/internal/domain/syncrun"
)

// timeLayout sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Ensure Ledger implements ports.LedgerPort.
var _ ports.LedgerPort = (*Ledger)(nil)

// Ledger implements ports.LedgerPort using SQLite.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// NewLedger creates a Ledger over an open database.
func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

func formatTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// StartRun records a run as running.
func (l *Ledger) StartRun(ctx context.Context, report *syncrun.Report) error {
	if report == nil {
		return fmt.Errorf("report is nil")
	}

	req := report.Request
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO sync_runs (
			id, team, source, destination, wip, dry_run, skip_existing,
			status, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.RunID,
		req.Team,
		req.SourceRoot,
		req.DestinationRoot,
		boolToInt(req.WIP),
		boolToInt(req.DryRun),
		boolToInt(req.SkipExisting),
		string(report.Status),
		formatTime(report.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", report.RunID, err)
	}
	return nil
}

// RecordFile appends one file outcome to a run.
func (l *Ledger) RecordFile(ctx context.Context, runID string, res syncrun.FileResult) error {
	var number sql.NullInt64
	if res.DocumentNumber > 0 {
		number = sql.NullInt64{Int64: int64(res.DocumentNumber), Valid: true}
	}
	var errText sql.NullString
	if res.Error != "" {
		errText = sql.NullString{String: res.Error, Valid: true}
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO sync_files (
			run_id, path, category, title, state, document_number, error, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		res.Path,
		res.Identity.Category,
		res.Identity.Title,
		string(res.State),
		number,
		errText,
		formatTime(l.now()),
	)
	if err != nil {
		return fmt.Errorf("failed to record file %s: %w", res.Path, err)
	}
	return nil
}

// FinishRun stores the final status and counts of a run.
func (l *Ledger) FinishRun(ctx context.Context, report *syncrun.Report) error {
	if report == nil {
		return fmt.Errorf("report is nil")
	}

	var errText sql.NullString
	if report.Error != "" {
		errText = sql.NullString{String: report.Error, Valid: true}
	}

	result, err := l.db.ExecContext(ctx, `
		UPDATE sync_runs
		SET status = ?, created = ?, updated = ?, skipped = ?, failed = ?,
			error = ?, completed_at = ?
		WHERE id = ?
	`,
		string(report.Status),
		report.Count(syncrun.StateCreated),
		report.Count(syncrun.StateUpdated),
		report.Count(syncrun.StateSkipped),
		report.Count(syncrun.StateFailed),
		errText,
		formatTime(report.CompletedAt),
		report.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", report.RunID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", report.RunID)
	}
	return nil
}

// ListRuns returns the most recent runs first. A non-positive limit returns all.
func (l *Ledger) ListRuns(ctx context.Context, limit int) ([]ports.RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, team, source, destination, dry_run, status,
			created, updated, skipped, failed,
			COALESCE(error, ''), started_at, COALESCE(completed_at, '')
		FROM sync_runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []ports.RunSummary
	for rows.Next() {
		var (
			r      ports.RunSummary
			dryRun int
			status string
		)
		if err := rows.Scan(
			&r.RunID, &r.Team, &r.Source, &r.Destination, &dryRun, &status,
			&r.Created, &r.Updated, &r.Skipped, &r.Failed,
			&r.Error, &r.StartedAt, &r.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.DryRun = dryRun != 0
		r.Status = syncrun.Status(status)
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// RunFiles returns the file outcomes of one run in processing order.
func (l *Ledger) RunFiles(ctx context.Context, runID string) ([]syncrun.FileResult, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT path, category, title, state, COALESCE(document_number, 0), COALESCE(error, '')
		FROM sync_files
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query files of run %s: %w", runID, err)
	}
	defer rows.Close()

	var files []syncrun.FileResult
	for rows.Next() {
		var (
			res   syncrun.FileResult
			id    document.Identity
			state string
		)
		if err := rows.Scan(&res.Path, &id.Category, &id.Title, &state, &res.DocumentNumber, &res.Error); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		res.Identity = id
		res.State = syncrun.FileState(state)
		files = append(files, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating files: %w", err)
	}
	return files, nil
}
