package scanning

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/esrf-bliss/blisscore/config"
	"github.com/esrf-bliss/blisscore/errors"
)

// Runner drives an acquisition chain end to end: presets, first
// prepare/start, then the trigger / wait-ready loop until a
// terminating top master is exhausted. Stop always runs, whatever
// happened before.
type Runner struct {
	logger        *slog.Logger
	maxIterations int
	stopTimeout   time.Duration
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the runner's logger.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithMaxIterations caps the number of iterations regardless of the
// masters' point counts. Zero means no cap.
func WithMaxIterations(n int) RunnerOption {
	return func(r *Runner) {
		r.maxIterations = n
	}
}

// WithStopTimeout bounds the final unwind when the run context is
// already cancelled.
func WithStopTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.stopTimeout = d
	}
}

// WithRunnerConfig applies the configured scanning defaults.
func WithRunnerConfig(cfg *config.ScanningConfig) RunnerOption {
	return func(r *Runner) {
		if cfg.StopTimeout > 0 {
			r.stopTimeout = cfg.StopTimeout
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		stopTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the chain until its terminating top masters produced
// all their points, the iteration cap is hit, or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, chain *AcquisitionChain) error {
	iters := chain.IterList()
	if len(iters) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidValue, "Runner", "Run", "empty chain")
	}
	presets := chain.Presets()

	runErr := r.run(ctx, chain, iters, presets)

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.stopTimeout)
	defer cancel()
	for i := len(iters) - 1; i >= 0; i-- {
		if err := iters[i].Stop(stopCtx); err != nil {
			r.logger.Error("chain stop failed", "chain", iters[i].Top().Name(), "error", err)
			if runErr == nil {
				runErr = err
			}
		}
	}
	for _, p := range presets {
		if err := p.Stop(stopCtx, chain); err != nil {
			r.logger.Error("preset stop failed", "error", err)
			if runErr == nil {
				runErr = err
			}
		}
	}
	return runErr
}

func (r *Runner) run(ctx context.Context, chain *AcquisitionChain, iters []*AcquisitionChainIter, presets []ChainPreset) error {
	for _, p := range presets {
		if err := p.Prepare(ctx, chain); err != nil {
			return err
		}
	}
	for _, it := range iters {
		if err := it.ApplyParameters(ctx); err != nil {
			return err
		}
		if err := it.Prepare(ctx); err != nil {
			return err
		}
		if err := it.Start(ctx); err != nil {
			return err
		}
	}
	for _, p := range presets {
		if err := p.Start(ctx, chain); err != nil {
			return err
		}
	}

	for iteration := 0; ; iteration++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, p := range presets {
			if ip, ok := p.(ChainIterationPreset); ok {
				if err := ip.PrepareIteration(ctx, iteration); err != nil {
					return err
				}
			}
		}

		for _, it := range iters {
			if err := it.Trigger(ctx); err != nil {
				return err
			}
		}

		done, err := r.advance(ctx, iters)
		if err != nil {
			return err
		}

		for _, p := range presets {
			if ip, ok := p.(ChainIterationPreset); ok {
				if err := ip.StopIteration(ctx, iteration); err != nil {
					return err
				}
			}
		}

		if done {
			return nil
		}
		if r.maxIterations > 0 && iteration+1 >= r.maxIterations {
			r.logger.Debug("iteration cap reached", "iterations", r.maxIterations)
			return nil
		}

		for _, it := range iters {
			if err := it.Prepare(ctx); err != nil {
				return err
			}
			if err := it.Start(ctx); err != nil {
				return err
			}
		}
	}
}

// advance runs Next on every iterator and decides whether the scan is
// over: an exhausted terminating master ends it, and so does
// exhaustion of every iterator when none terminates.
func (r *Runner) advance(ctx context.Context, iters []*AcquisitionChainIter) (bool, error) {
	allDone := true
	for _, it := range iters {
		cont, err := it.Next(ctx)
		if err != nil {
			return false, err
		}
		if cont {
			allDone = false
			continue
		}
		if mc, ok := it.Top().(masterController); !ok || mc.Terminator() {
			return true, nil
		}
	}
	return allDone, nil
}
