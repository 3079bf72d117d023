package scanning

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/esrf-bliss/blisscore/errors"
	"github.com/esrf-bliss/blisscore/metric"
)

const (
	phaseApplyParameters = "apply_parameters"
	phasePrepare         = "prepare"
	phaseStart           = "start"
	phaseTrigger         = "trigger"
	phaseWaitReady       = "wait_ready"
	phaseStop            = "stop"
)

// AcquisitionChainIter walks one top master's tree through the phase
// protocol. ApplyParameters, Prepare and Start run top-down so a
// master is always ready before its children; WaitReady and Stop run
// bottom-up so children settle before their master.
type AcquisitionChainIter struct {
	chain    *AcquisitionChain
	root     *chainNode
	levels   [][]*chainNode
	sequence int
	logger   *slog.Logger
	metrics  *metric.Metrics
}

func newChainIter(c *AcquisitionChain, root *chainNode) *AcquisitionChainIter {
	it := &AcquisitionChainIter{
		chain:   c,
		root:    root,
		logger:  c.logger.With("chain", root.obj.Name()),
		metrics: c.metrics,
	}
	level := []*chainNode{root}
	for len(level) > 0 {
		it.levels = append(it.levels, level)
		var next []*chainNode
		for _, n := range level {
			next = append(next, n.children...)
		}
		level = next
	}
	return it
}

// Top returns the top master driven by this iterator.
func (it *AcquisitionChainIter) Top() AcquisitionObject { return it.root.obj }

// SequenceIndex returns the number of completed iterations.
func (it *AcquisitionChainIter) SequenceIndex() int { return it.sequence }

// ApplyParameters pushes pending parameters into every device,
// top-down.
func (it *AcquisitionChainIter) ApplyParameters(ctx context.Context) error {
	return it.topDown(ctx, phaseApplyParameters)
}

// Prepare readies every device for the next point, top-down. Devices
// flagged prepare-once are skipped after the first iteration, and a
// slave whose previous reading task is still alive fails with
// ErrReadingActive.
func (it *AcquisitionChainIter) Prepare(ctx context.Context) error {
	if it.chain.parallelPrepare {
		return it.parallelTopDown(ctx, phasePrepare)
	}
	return it.topDown(ctx, phasePrepare)
}

// Start starts every device, top-down. Devices flagged start-once are
// skipped after the first iteration, but a slave's reading task is
// respawned whenever it is not alive.
func (it *AcquisitionChainIter) Start(ctx context.Context) error {
	return it.topDown(ctx, phaseStart)
}

// Trigger triggers the top master once.
func (it *AcquisitionChainIter) Trigger(ctx context.Context) error {
	return it.runPhase(ctx, phaseTrigger, it.root)
}

// Next waits for every device to be ready, bottom-up, then advances
// the sequence index. It returns false when the top master produced
// all its points.
func (it *AcquisitionChainIter) Next(ctx context.Context) (bool, error) {
	if err := it.bottomUp(ctx, phaseWaitReady, true); err != nil {
		return false, err
	}
	it.sequence++
	if it.metrics != nil {
		it.metrics.RecordIteration(it.root.obj.Name())
	}
	if n := it.root.obj.NPoints(); n > 0 && it.sequence >= n {
		return false, nil
	}
	return true, nil
}

// Stop unwinds the whole tree bottom-up. Every node is stopped even
// after a failure; the first error is returned.
func (it *AcquisitionChainIter) Stop(ctx context.Context) error {
	return it.bottomUp(ctx, phaseStop, false)
}

// topDown runs one phase level by level from the top master down,
// nodes of a level in parallel.
func (it *AcquisitionChainIter) topDown(ctx context.Context, phase string) error {
	for _, level := range it.levels {
		g, gctx := errgroup.WithContext(ctx)
		for _, n := range level {
			g.Go(func() error {
				return it.runPhase(gctx, phase, n)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// parallelTopDown spawns the phase on every node at once; each node
// still waits for its own parent before running, so order within a
// branch is preserved while independent branches overlap freely.
func (it *AcquisitionChainIter) parallelTopDown(ctx context.Context, phase string) error {
	done := make(map[*chainNode]chan struct{})
	for _, level := range it.levels {
		for _, n := range level {
			done[n] = make(chan struct{})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, level := range it.levels {
		for _, n := range level {
			g.Go(func() error {
				if n.parent != nil {
					select {
					case <-done[n.parent]:
					case <-gctx.Done():
						return gctx.Err()
					}
				}
				if err := it.runPhase(gctx, phase, n); err != nil {
					return err
				}
				close(done[n])
				return nil
			})
		}
	}
	return g.Wait()
}

// bottomUp runs one phase level by level from the leaves up. With
// failFast false every node still runs and the first error is
// collected, keeping the unwind best-effort.
func (it *AcquisitionChainIter) bottomUp(ctx context.Context, phase string, failFast bool) error {
	var firstErr error
	for i := len(it.levels) - 1; i >= 0; i-- {
		g, gctx := &errgroup.Group{}, ctx
		if failFast {
			g, gctx = errgroup.WithContext(ctx)
		}
		for _, n := range it.levels[i] {
			g.Go(func() error {
				return it.runPhase(gctx, phase, n)
			})
		}
		if err := g.Wait(); err != nil {
			if failFast {
				return err
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// runPhase dispatches one phase on one node, with timing and error
// accounting.
func (it *AcquisitionChainIter) runPhase(ctx context.Context, phase string, n *chainNode) error {
	begin := time.Now()
	err := it.invoke(ctx, phase, n)
	if it.metrics != nil {
		it.metrics.RecordPhaseDuration(n.obj.Name(), phase, time.Since(begin))
		if err != nil {
			it.metrics.RecordPhaseError(n.obj.Name(), phase)
		}
	}
	if err != nil {
		it.logger.Error("phase failed", "device", n.obj.Name(), "phase", phase, "error", err)
		return err
	}
	it.logger.Debug("phase done", "device", n.obj.Name(), "phase", phase,
		"duration", time.Since(begin))
	return nil
}

func (it *AcquisitionChainIter) invoke(ctx context.Context, phase string, n *chainNode) error {
	obj := n.obj
	switch phase {
	case phaseApplyParameters:
		return obj.ApplyParameters(ctx)

	case phasePrepare:
		if obj.PrepareOnce() && it.sequence > 0 {
			return nil
		}
		if sc, ok := obj.(slaveController); ok && sc.ReadingAlive() {
			if it.sequence == 0 {
				return errors.WrapFatal(errors.ErrReadingActive, "AcquisitionChainIter", phasePrepare, obj.Name())
			}
			// Between iterations a loop that delivered its points may
			// still be tearing down; join it before re-preparing. A
			// loop meant to span the whole scan belongs to a
			// prepare-once device and never reaches here.
			if err := sc.WaitReading(ctx); err != nil {
				return err
			}
		}
		return obj.Prepare(ctx)

	case phaseStart:
		if sc, ok := obj.(slaveController); ok {
			if r, ok := obj.(Reader); ok {
				sc.SpawnReading(ctx, r)
			}
		}
		if obj.StartOnce() && it.sequence > 0 {
			return nil
		}
		return obj.Start(ctx)

	case phaseTrigger:
		return obj.Trigger(ctx)

	case phaseWaitReady:
		return it.waitReady(ctx, obj)

	case phaseStop:
		return it.stopNode(ctx, obj)
	}
	return nil
}

// waitReady waits for one device, racing its reading task: a reading
// loop dying with an error aborts the wait immediately instead of
// blocking on a device that will never deliver.
func (it *AcquisitionChainIter) waitReady(ctx context.Context, obj AcquisitionObject) error {
	sc, ok := obj.(slaveController)
	if !ok {
		return obj.WaitReady(ctx)
	}

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ready := make(chan error, 1)
	go func() {
		ready <- obj.WaitReady(wctx)
	}()

	select {
	case err := <-ready:
		return err
	case <-sc.ReadingDone():
		if rerr := sc.ReadingErr(); rerr != nil {
			cancel()
			<-ready
			return errors.Wrap(rerr, "AcquisitionChainIter", phaseWaitReady, obj.Name())
		}
		return <-ready
	case <-ctx.Done():
		cancel()
		<-ready
		return ctx.Err()
	}
}

// stopNode stops one device: raise the reading stop flag first, stop
// the device, then join the reading task and any pending triggers so
// nothing of this scan survives it. Every step runs even when an
// earlier one failed.
func (it *AcquisitionChainIter) stopNode(ctx context.Context, obj AcquisitionObject) error {
	sc, isSlave := obj.(slaveController)
	if isSlave {
		sc.StopReading()
	}

	firstErr := obj.Stop(ctx)

	if isSlave {
		if err := sc.WaitReading(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if mc, ok := obj.(masterController); ok {
		if err := mc.WaitSlaves(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
