package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jbctechsolutions/wikisync/internal/application/ports"
	"github.com/jbctechsolutions/wikisync/internal/domain/document"
	"github.com/jbctechsolutions/wikisync/internal/domain/errors"
	"github.com/jbctechsolutions/wikisync/internal/domain/ratelimit"
	"github.com/jbctechsolutions/wikisync/internal/domain/syncrun"
	"github.com/jbctechsolutions/wikisync/internal/infrastructure/logging"
	"github.com/jbctechsolutions/wikisync/internal/infrastructure/tracing"
)

// Defaults for Options.
const (
	DefaultCommitMessage  = "sync from esa sync importer"
	DefaultSearchPageSize = 20
)

// Options tunes the orchestrator.
type Options struct {
	// CommitMessage is attached to every create and update.
	CommitMessage string
	// SearchPageSize is the per_page of the per-file existence query.
	SearchPageSize int
	// IndexPageSize is the per_page of the remote index listing.
	IndexPageSize int
	// ContinueOnReadError records unreadable files as failed instead of
	// aborting the run.
	ContinueOnReadError bool
}

// Orchestrator drives a sync run: discover, resolve, check, write, pace.
// Files are processed strictly one at a time.
type Orchestrator struct {
	client   ports.WikiClientPort
	files    ports.FileSourcePort
	ledger   ports.LedgerPort
	governor *Governor
	lister   *IndexLister
	opts     Options
	logger   *logging.Logger
	tracer   *tracing.Tracer
	now      func() time.Time
	newRunID func() string
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLedger records every run and file outcome in ledger.
func WithLedger(ledger ports.LedgerPort) OrchestratorOption {
	return func(o *Orchestrator) { o.ledger = ledger }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithTracer sets the tracer.
func WithTracer(tracer *tracing.Tracer) OrchestratorOption {
	return func(o *Orchestrator) { o.tracer = tracer }
}

// WithRunIDGenerator overrides run id generation.
func WithRunIDGenerator(fn func() string) OrchestratorOption {
	return func(o *Orchestrator) { o.newRunID = fn }
}

// WithReportClock overrides the clock used for report timestamps.
func WithReportClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(client ports.WikiClientPort, files ports.FileSourcePort, governor *Governor, opts Options, options ...OrchestratorOption) (*Orchestrator, error) {
	if client == nil {
		return nil, fmt.Errorf("wiki client is required")
	}
	if files == nil {
		return nil, fmt.Errorf("file source is required")
	}
	if governor == nil {
		return nil, fmt.Errorf("governor is required")
	}

	if opts.CommitMessage == "" {
		opts.CommitMessage = DefaultCommitMessage
	}
	if opts.SearchPageSize <= 0 {
		opts.SearchPageSize = DefaultSearchPageSize
	}

	o := &Orchestrator{
		client:   client,
		files:    files,
		governor: governor,
		lister:   NewIndexLister(client, governor, opts.IndexPageSize),
		opts:     opts,
		logger:   logging.Discard(),
		tracer:   tracing.Noop(),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range options {
		opt(o)
	}
	return o, nil
}

// Index returns the lister the orchestrator uses for skip-existing runs.
func (o *Orchestrator) Index() *IndexLister {
	return o.lister
}

// Sync discovers every file under req.SourceRoot and syncs it.
func (o *Orchestrator) Sync(ctx context.Context, req syncrun.Request) (*syncrun.Report, error) {
	if err := o.validate(req); err != nil {
		return nil, err
	}

	files, err := o.files.Discover(req.SourceRoot)
	if err != nil {
		return nil, errors.NewError(errors.CodeFilesystem,
			fmt.Sprintf("failed to list files in %q", req.SourceRoot), err)
	}

	return o.run(ctx, req, files)
}

// SyncFiles syncs the given files only, in the order given.
func (o *Orchestrator) SyncFiles(ctx context.Context, req syncrun.Request, files []document.LocalFile) (*syncrun.Report, error) {
	if err := o.validate(req); err != nil {
		return nil, err
	}
	return o.run(ctx, req, files)
}

func (o *Orchestrator) validate(req syncrun.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}

	ok, err := o.files.DirExists(req.SourceRoot)
	if err != nil {
		return errors.NewError(errors.CodeFilesystem,
			fmt.Sprintf("failed to stat source directory %q", req.SourceRoot), err)
	}
	if !ok {
		return errors.NewError(errors.CodeConfiguration,
			fmt.Sprintf("source directory %q does not exist", req.SourceRoot), errors.ErrSourceNotFound)
	}
	return nil
}

// runState is the per-run bookkeeping.
type runState struct {
	req     syncrun.Request
	report  *syncrun.Report
	index   *Index
	written map[string]writeRecord
}

type writeRecord struct {
	path   string
	number int
}

func (o *Orchestrator) run(ctx context.Context, req syncrun.Request, files []document.LocalFile) (*syncrun.Report, error) {
	report := syncrun.NewReport(o.newRunID(), req, o.now())

	ctx = logging.WithRunID(ctx, report.RunID)
	ctx = logging.WithTeam(ctx, req.Team)
	ctx, span := o.tracer.StartRunSpan(ctx, report.RunID, req.Team, req.DestinationRoot, req.DryRun)
	span.SetFileCount(len(files))

	logging.LogRunStart(ctx, o.logger, req.SourceRoot, req.DestinationRoot, len(files), req.DryRun)
	if o.ledger != nil {
		if err := o.ledger.StartRun(ctx, report); err != nil {
			o.logger.WarnContext(ctx, "failed to record run start", "error", err)
		}
	}

	err := o.process(ctx, &runState{
		req:     req,
		report:  report,
		written: make(map[string]writeRecord),
	}, files)

	report.Complete(o.now(), err)
	if o.ledger != nil {
		if lerr := o.ledger.FinishRun(context.WithoutCancel(ctx), report); lerr != nil {
			o.logger.WarnContext(ctx, "failed to record run completion", "error", lerr)
		}
	}

	created := report.Count(syncrun.StateCreated)
	updated := report.Count(syncrun.StateUpdated)
	skipped := report.Count(syncrun.StateSkipped)
	span.SetOutcome(created, updated, skipped)

	if err != nil {
		logging.LogRunFailed(ctx, o.logger, err, report.Duration())
		span.EndWithError(err)
		return report, err
	}

	logging.LogRunComplete(ctx, o.logger, created, updated, skipped, report.Duration())
	span.End()
	return report, nil
}

func (o *Orchestrator) process(ctx context.Context, st *runState, files []document.LocalFile) error {
	if st.req.SkipExisting {
		idx, err := o.lister.ListExisting(ctx, st.req.Team, st.req.SearchNamespace())
		if err != nil {
			return err
		}
		st.index = idx
		o.logger.DebugContext(ctx, "loaded remote index", "documents", idx.Len())
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := o.syncFile(ctx, st, f)
		st.report.Add(res)
		if o.ledger != nil {
			if lerr := o.ledger.RecordFile(context.WithoutCancel(ctx), st.report.RunID, res); lerr != nil {
				o.logger.WarnContext(ctx, "failed to record file outcome", "path", f.Path, "error", lerr)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) syncFile(ctx context.Context, st *runState, f document.LocalFile) (syncrun.FileResult, error) {
	id := document.Resolve(f.Path, st.req.SourceRoot, st.req.DestinationRoot)
	res := syncrun.FileResult{Path: f.Path, Identity: id}

	ctx = logging.WithFile(ctx, f.Path)
	ctx, span := o.tracer.StartFileSpan(ctx, f.Path, id.FullName())

	finish := func(state syncrun.FileState, number int, err error) (syncrun.FileResult, error) {
		res.State = state
		res.DocumentNumber = number
		span.SetState(string(state), number)
		if err != nil {
			res.Error = err.Error()
			span.EndWithError(err)
			return res, err
		}
		span.End()
		return res, nil
	}

	if st.index != nil && st.index.Contains(id) {
		logging.LogFileSkipped(ctx, o.logger, id.FullName())
		return finish(syncrun.StateSkipped, 0, nil)
	}

	o.logger.DebugContext(ctx, "resolved", "category", id.Category, "title", id.Title)

	body, err := o.files.ReadBody(f.Path)
	if err != nil {
		rerr := errors.NewError(errors.CodeFilesystem, fmt.Sprintf("failed to read %s", f.Path), err)
		if o.opts.ContinueOnReadError {
			o.logger.WarnContext(ctx, "skipping unreadable file", "error", err)
			failed, _ := finish(syncrun.StateFailed, 0, rerr)
			return failed, nil
		}
		return finish(syncrun.StateFailed, 0, rerr)
	}

	prior, collided := st.written[id.Key()]
	if collided {
		o.logger.WarnContext(ctx, "identity collision, updating the document written earlier in this run",
			"full_name", id.FullName(),
			"first_path", prior.path,
			"second_path", f.Path,
		)
	}

	if st.req.DryRun {
		o.logger.InfoContext(ctx, "dry run", "full_name", id.FullName())
		return finish(syncrun.StateReported, 0, nil)
	}

	number := prior.number
	if !collided || number == 0 {
		match, err := o.findExisting(ctx, st.req.Team, id)
		if err != nil {
			return finish(syncrun.StateFailed, 0, err)
		}
		if match != nil {
			if match.Number <= 0 {
				return finish(syncrun.StateFailed, 0, errors.WithContext(
					errors.NewError(errors.CodeMissingIdentity,
						fmt.Sprintf("post %s matched without a number", id.FullName()), errors.ErrMissingIdentity),
					"full_name", id.FullName()))
			}
			number = match.Number
		}
	}

	if number > 0 {
		if err := o.update(ctx, st.req.Team, number, id, body); err != nil {
			return finish(syncrun.StateFailed, 0, err)
		}
		st.written[id.Key()] = writeRecord{path: f.Path, number: number}
		logging.LogFileSynced(ctx, o.logger, "updated", id.FullName(), number)
		return finish(syncrun.StateUpdated, number, nil)
	}

	created, err := o.create(ctx, st.req, id, body)
	if err != nil {
		return finish(syncrun.StateFailed, 0, err)
	}
	st.written[id.Key()] = writeRecord{path: f.Path, number: created}
	logging.LogFileSynced(ctx, o.logger, "added", id.FullName(), created)
	return finish(syncrun.StateCreated, created, nil)
}

// findExisting returns the first document whose identity equals id exactly.
func (o *Orchestrator) findExisting(ctx context.Context, team string, id document.Identity) (*document.RemoteDocument, error) {
	query := fmt.Sprintf(`on:"%s" name:"%s"`, id.Category, id.Title)

	var match *document.RemoteDocument
	err := o.governor.Call(ctx, "search", func(ctx context.Context) (ratelimit.Snapshot, error) {
		res, err := o.client.SearchDocuments(ctx, team, ports.SearchQuery{
			Query:   query,
			Page:    1,
			PerPage: o.opts.SearchPageSize,
		})
		if err != nil {
			return ratelimit.Snapshot{}, err
		}
		match = nil
		for i := range res.Documents {
			if res.Documents[i].Matches(id) {
				d := res.Documents[i]
				match = &d
				break
			}
		}
		return res.RateLimit, nil
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (o *Orchestrator) create(ctx context.Context, req syncrun.Request, id document.Identity, body string) (int, error) {
	var number int
	err := o.governor.Call(ctx, "create", func(ctx context.Context) (ratelimit.Snapshot, error) {
		res, err := o.client.CreateDocument(ctx, req.Team, ports.NewDocument{
			Category: id.Category,
			Title:    id.Title,
			Body:     body,
			Tags:     []string{},
			WIP:      req.WIP,
			Message:  o.opts.CommitMessage,
		})
		if err != nil {
			return ratelimit.Snapshot{}, err
		}
		number = res.Document.Number
		return res.RateLimit, nil
	})
	return number, err
}

func (o *Orchestrator) update(ctx context.Context, team string, number int, id document.Identity, body string) error {
	return o.governor.Call(ctx, "update", func(ctx context.Context) (ratelimit.Snapshot, error) {
		res, err := o.client.UpdateDocument(ctx, team, number, ports.DocumentUpdate{
			Title:   id.Title,
			Body:    body,
			Tags:    []string{},
			Message: o.opts.CommitMessage,
		})
		if err != nil {
			return ratelimit.Snapshot{}, err
		}
		return res.RateLimit, nil
	})
}
