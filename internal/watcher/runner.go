package watcher

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/wsindex/internal/indexer"
)

// EventSource delivers debounced change batches
type EventSource interface {
	Events() <-chan []DebouncedEvent
}

// RunStarter starts an indexing run
type RunStarter interface {
	StartRun(ctx context.Context, root string) (*indexer.RunSummary, error)
}

// RunnerOptions configures a Runner
type RunnerOptions struct {
	Root       string
	RetryDelay time.Duration // Wait before retrying after a busy outcome
	OnRun      func(*indexer.RunSummary)
	Logger     zerolog.Logger
}

// Runner turns change batches into incremental indexing runs. A batch that
// arrives while another run is active marks a rerun as pending, which is
// retried until it is accepted.
type Runner struct {
	source  EventSource
	starter RunStarter
	opts    RunnerOptions
}

// NewRunner creates a Runner
func NewRunner(source EventSource, starter RunStarter, opts RunnerOptions) *Runner {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultDebounce
	}
	return &Runner{source: source, starter: starter, opts: opts}
}

// Run processes batches until ctx is done or the source is closed
func (r *Runner) Run(ctx context.Context) error {
	var (
		pending bool
		retry   *time.Timer
		retryC  <-chan time.Time
	)
	defer func() {
		if retry != nil {
			retry.Stop()
		}
	}()

	events := r.source.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-events:
			if !ok {
				return nil
			}
			r.opts.Logger.Debug().Int("changes", len(batch)).Msg("workspace changed")
			pending = true
		case <-retryC:
			retryC = nil
		}

		if !pending || retryC != nil {
			continue
		}

		pending = r.trigger(ctx)
		if pending {
			retry = time.NewTimer(r.opts.RetryDelay)
			retryC = retry.C
		}
	}
}

// trigger starts a run and reports whether it must be retried
func (r *Runner) trigger(ctx context.Context) bool {
	summary, err := r.starter.StartRun(ctx, r.opts.Root)
	if err != nil {
		r.opts.Logger.Warn().Err(err).Msg("incremental indexing failed")
		return false
	}
	if summary.Outcome == indexer.OutcomeBusy {
		r.opts.Logger.Debug().Msg("indexing busy, rerun pending")
		return true
	}
	if r.opts.OnRun != nil {
		r.opts.OnRun(summary)
	}
	return false
}
