// Package syncer implements the sync engine: rate pacing, the remote index
// and the per-file create-or-update flow.
package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/jbctechsolutions/wikisync/internal/domain/ratelimit"
	"github.com/jbctechsolutions/wikisync/internal/infrastructure/logging"
	"github.com/jbctechsolutions/wikisync/internal/infrastructure/tracing"
)

// Wait kinds, used in logs and span events.
const (
	WaitPace     = "pace"
	WaitCooldown = "cooldown"
)

// SleepFunc suspends the caller for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// GovernorConfig holds the pacing bounds.
type GovernorConfig struct {
	// MinCooldown is the shortest wait after a 429.
	MinCooldown time.Duration
	// FallbackCooldown is used after a 429 that carries no reset time.
	FallbackCooldown time.Duration
}

// Governor spaces requests so that the remaining quota lasts until the
// window resets. All requests of a run go through one Governor.
type Governor struct {
	cfg    GovernorConfig
	now    func() time.Time
	sleep  SleepFunc
	logger *logging.Logger
	tracer *tracing.Tracer
}

// GovernorOption configures a Governor.
type GovernorOption func(*Governor)

// WithClock overrides the time source.
func WithClock(now func() time.Time) GovernorOption {
	return func(g *Governor) { g.now = now }
}

// WithSleeper overrides the suspension function.
func WithSleeper(sleep SleepFunc) GovernorOption {
	return func(g *Governor) { g.sleep = sleep }
}

// WithGovernorLogger sets the logger.
func WithGovernorLogger(logger *logging.Logger) GovernorOption {
	return func(g *Governor) { g.logger = logger }
}

// WithGovernorTracer sets the tracer used for request spans.
func WithGovernorTracer(tracer *tracing.Tracer) GovernorOption {
	return func(g *Governor) { g.tracer = tracer }
}

// NewGovernor creates a Governor.
func NewGovernor(cfg GovernorConfig, opts ...GovernorOption) *Governor {
	if cfg.MinCooldown <= 0 {
		cfg.MinCooldown = time.Second
	}
	if cfg.FallbackCooldown <= 0 {
		cfg.FallbackCooldown = 60 * time.Second
	}

	g := &Governor{
		cfg:    cfg,
		now:    time.Now,
		sleep:  Sleep,
		logger: logging.Discard(),
		tracer: tracing.Noop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Pace waits after a successful response. A snapshot without a window, or
// one whose window already reset, does not wait.
func (g *Governor) Pace(ctx context.Context, snap ratelimit.Snapshot) error {
	return g.wait(ctx, WaitPace, snap, snap.Wait(g.now()))
}

// Cooldown waits after a 429. The wait is never shorter than MinCooldown.
func (g *Governor) Cooldown(ctx context.Context, snap ratelimit.Snapshot) error {
	return g.wait(ctx, WaitCooldown, snap, g.CooldownDuration(snap))
}

// CooldownDuration returns what Cooldown would wait for snap right now.
func (g *Governor) CooldownDuration(snap ratelimit.Snapshot) time.Duration {
	d := g.cfg.FallbackCooldown
	if snap.HasWindow() {
		d = snap.Wait(g.now())
	}
	if d < g.cfg.MinCooldown {
		return g.cfg.MinCooldown
	}
	return d
}

func (g *Governor) wait(ctx context.Context, kind string, snap ratelimit.Snapshot, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	logging.LogWait(ctx, g.logger, kind, d, snap.Remaining, snap.Limit)
	tracing.AddWaitEvent(ctx, kind, d)
	return g.sleep(ctx, d)
}

// Call runs one logical request. A 429 triggers a cooldown and the same
// request is issued again, without limit. Any other error ends the call.
// After a success the governor paces on the returned snapshot.
func (g *Governor) Call(ctx context.Context, operation string, fn func(ctx context.Context) (ratelimit.Snapshot, error)) error {
	for attempt := 1; ; attempt++ {
		reqCtx, span := g.tracer.StartRequestSpan(ctx, operation)
		span.SetAttempt(attempt)

		snap, err := fn(reqCtx)
		var exceeded *ratelimit.ExceededError
		switch {
		case errors.As(err, &exceeded):
			span.SetRateLimit(exceeded.Snapshot.Remaining, exceeded.Snapshot.Limit)
			span.EndWithError(err)
			g.logger.WarnContext(ctx, "rate limited, cooling down",
				"operation", operation,
				"attempt", attempt,
			)
			if err := g.Cooldown(ctx, exceeded.Snapshot); err != nil {
				return err
			}
			continue
		case err != nil:
			span.EndWithError(err)
			return err
		}

		span.SetRateLimit(snap.Remaining, snap.Limit)
		span.End()
		return g.Pace(ctx, snap)
	}
}
