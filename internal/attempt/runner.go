package attempt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
	"unicode/utf8"

	"eccorun/internal/chunker"
	"eccorun/internal/ledger"
	"eccorun/internal/logging"
	"eccorun/internal/resume"
	"eccorun/internal/services"
	"eccorun/internal/source"
)

// Options configures one attempt.
type Options struct {
	ID          ledger.AttemptID
	ChunkLength int
	MaxFails    int
	// MaxTime is the wall-clock budget; zero runs until the shard is exhausted.
	MaxTime time.Duration
	Model   string
}

// Option customizes a Runner.
type Option func(*Runner)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithObserver registers a callback invoked after every record.
func WithObserver(fn func(Event)) Option {
	return func(r *Runner) {
		r.observe = fn
	}
}

// Runner executes a single attempt.
type Runner struct {
	source    Source
	ledger    ledger.Ledger
	processor Processor
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
	observe   func(Event)
}

// New validates options and returns a runner.
func New(src Source, l ledger.Ledger, p Processor, opts Options, logger *slog.Logger, options ...Option) (*Runner, error) {
	if src == nil || l == nil || p == nil {
		return nil, services.Wrap(services.ErrConfiguration, "attempt", "new", "source, ledger and processor are required", nil)
	}
	if err := opts.ID.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "attempt", "new", "", err)
	}
	if opts.ChunkLength <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "attempt", "new", fmt.Sprintf("chunk length must be positive, got %d", opts.ChunkLength), nil)
	}
	if opts.MaxFails < 0 {
		return nil, services.Wrap(services.ErrConfiguration, "attempt", "new", fmt.Sprintf("max fails must not be negative, got %d", opts.MaxFails), nil)
	}
	r := &Runner{
		source:    src,
		ledger:    l,
		processor: p,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "attempt"),
		now:       time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// Run walks the shard until the input is exhausted, the budget runs out or a
// fatal error occurs. The returned summary is valid even when err is non-nil.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := r.now()
	ctx = services.WithJob(services.WithShard(ctx, r.opts.ID.Shard), r.opts.ID.Job)
	logger := logging.WithContext(ctx, r.logger)
	summary := Summary{State: StateRunning}

	snap, err := ledger.Load(ctx, r.ledger, r.opts.ID.Shard)
	if err != nil {
		return summary, err
	}
	logger.Info("attempt started",
		logging.Int("total_workers", r.opts.ID.Total),
		logging.Int("done", len(snap.Done)),
		logging.Int("failed_urls", len(snap.Failures)),
		logging.Int("max_fails", r.opts.MaxFails),
		logging.Duration("max_time", r.opts.MaxTime),
	)

	for {
		if err := ctx.Err(); err != nil {
			summary.Elapsed = r.now().Sub(start)
			return summary, err
		}
		rec, err := r.source.Next()
		if errors.Is(err, io.EOF) {
			summary.State = StateInputExhausted
			break
		}
		if err != nil {
			summary.Elapsed = r.now().Sub(start)
			return summary, err
		}
		summary.Seen++

		state, chunks, procErr, err := r.handle(ctx, rec, snap)
		if err != nil {
			summary.Elapsed = r.now().Sub(start)
			attrs := []logging.Attr{logging.String(logging.FieldURL, rec.URL), logging.Error(err)}
			if eventType := abortEventType(err); eventType == eventAttemptCancelled {
				logging.WarnWithContext(logger, "attempt cancelled", eventType, attrs...)
			} else {
				logging.ErrorWithContext(logger, "attempt aborted", eventType, attrs...)
			}
			return summary, err
		}
		switch state {
		case StateSkipped:
			summary.Skipped++
		case StateAbandoned:
			summary.Abandoned++
		case StateProcessedOk:
			summary.Completed++
		case StateProcessedFailed:
			summary.Failed++
		}

		elapsed := r.now().Sub(start)
		r.emit(Event{Index: rec.Index, URL: rec.URL, State: state, Chunks: chunks, Elapsed: elapsed, Err: procErr})
		if state != StateProcessedOk && state != StateProcessedFailed {
			continue
		}
		logger.Info("time passed",
			logging.String(logging.FieldURL, rec.URL),
			logging.Duration("elapsed", elapsed),
			logging.Int("completed", summary.Completed),
			logging.Int("failed", summary.Failed),
		)
		if r.opts.MaxTime > 0 && elapsed > r.opts.MaxTime {
			summary.State = StateBudgetExceeded
			break
		}
	}

	summary.Elapsed = r.now().Sub(start)
	logger.Info("attempt finished",
		logging.String("state", summary.State.String()),
		logging.Int("seen", summary.Seen),
		logging.Int("skipped", summary.Skipped),
		logging.Int("abandoned", summary.Abandoned),
		logging.Int("completed", summary.Completed),
		logging.Int("failed", summary.Failed),
		logging.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

// handle runs one record through the gate and, if needed, the processor.
// procErr is the per-record processing failure; err is fatal.
func (r *Runner) handle(ctx context.Context, rec source.Record, snap ledger.Snapshot) (state State, chunks int, procErr error, err error) {
	decision := resume.Decide(rec.URL, snap, r.opts.MaxFails)
	switch decision {
	case resume.Skip:
		return StateSkipped, 0, nil, nil
	case resume.Abandon:
		r.logger.Debug("record abandoned",
			logging.String(logging.FieldURL, rec.URL),
			logging.String(logging.FieldDecision, decision.String()),
			logging.Int("failures", snap.FailureCount(rec.URL)),
		)
		return StateAbandoned, 0, nil, nil
	}

	pieces, err := chunker.Split(rec.Text, r.opts.ChunkLength)
	if err != nil {
		return StateRunning, 0, nil, services.Wrap(services.ErrConfiguration, "attempt", "chunk", rec.URL, err)
	}

	recordCtx := services.WithURL(ctx, rec.URL)
	corrections, procErr := r.correct(recordCtx, pieces)
	if procErr != nil {
		if ctx.Err() != nil {
			return StateRunning, len(pieces), nil, ctx.Err()
		}
		logging.WarnWithContext(logging.WithContext(recordCtx, r.logger), "record failed", "processing_failed",
			logging.Int("chunks", len(pieces)),
			logging.Int("prior_failures", snap.FailureCount(rec.URL)),
			logging.Error(procErr),
		)
		if err := r.ledger.RecordFailed(ctx, r.opts.ID, rec.URL); err != nil {
			return StateRunning, len(pieces), procErr, err
		}
		return StateProcessedFailed, len(pieces), procErr, nil
	}

	result := Result{
		URL:         rec.URL,
		LenOrig:     utf8.RuneCountInString(rec.Text),
		Corrections: corrections,
		TextOrig:    rec.Text,
		Model:       r.opts.Model,
		Job:         r.opts.ID.Job,
		ChunkLength: r.opts.ChunkLength,
		ProcessedAt: r.now().UTC(),
	}
	if err := r.ledger.RecordCompleted(ctx, r.opts.ID, rec.URL, result); err != nil {
		return StateRunning, len(pieces), nil, err
	}
	return StateProcessedOk, len(pieces), nil, nil
}

func (r *Runner) correct(ctx context.Context, chunks []string) ([]string, error) {
	out, err := r.processor.Correct(ctx, chunks)
	if err != nil {
		return nil, services.Wrap(services.ErrProcessing, "attempt", "correct", "", err)
	}
	if len(out) != len(chunks) {
		return nil, services.Wrap(services.ErrProcessing, "attempt", "correct",
			fmt.Sprintf("processor returned %d outputs for %d chunks", len(out), len(chunks)), nil)
	}
	return out, nil
}

func (r *Runner) emit(ev Event) {
	if r.observe != nil {
		r.observe(ev)
	}
}

const (
	eventAttemptCancelled = "attempt_cancelled"
	eventLedgerWrite      = "ledger_write_failed"
	eventInvalidInput     = "input_invalid"
	eventConfiguration    = "configuration_invalid"
	eventAttemptFailed    = "attempt_failed"
)

// abortEventType classifies an error that stops the attempt mid-record.
func abortEventType(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return eventAttemptCancelled
	case errors.Is(err, services.ErrLedger):
		return eventLedgerWrite
	case errors.Is(err, services.ErrInput):
		return eventInvalidInput
	case errors.Is(err, services.ErrConfiguration):
		return eventConfiguration
	default:
		return eventAttemptFailed
	}
}
