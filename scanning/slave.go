package scanning

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/esrf-bliss/blisscore/errors"
)

// AcquisitionSlave is the embedded core of devices that produce data.
// Slaves implementing Reader get a reading goroutine spawned at every
// start and software trigger when the previous one has finished; the
// loop is asked to stop through a flag it must check at its loop
// boundaries.
type AcquisitionSlave struct {
	BaseObject

	stopFlag atomic.Bool

	mu            sync.Mutex
	readingDone   chan struct{}
	readingErr    error
	readingCancel context.CancelFunc
}

// NewSlave creates a slave acquisition object.
func NewSlave(name string, opts ...ObjectOption) *AcquisitionSlave {
	return &AcquisitionSlave{BaseObject: NewBaseObject(name, opts...)}
}

// SpawnReading starts impl.Reading in a goroutine unless the previous
// reading task is still alive, and reports whether a new task was
// spawned. The reading context is detached from ctx cancellation so
// the loop outlives the phase that spawned it; it ends through the
// stop flag or CancelReading.
func (s *AcquisitionSlave) SpawnReading(ctx context.Context, impl Reader) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readingDone != nil {
		select {
		case <-s.readingDone:
		default:
			return false
		}
	}

	s.stopFlag.Store(false)
	rctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.readingCancel = cancel
	s.readingErr = nil
	done := make(chan struct{})
	s.readingDone = done

	go func() {
		err := impl.Reading(rctx)
		s.mu.Lock()
		s.readingErr = err
		s.mu.Unlock()
		close(done)
	}()
	return true
}

// ReadingAlive reports whether a reading task is currently running.
func (s *AcquisitionSlave) ReadingAlive() bool {
	s.mu.Lock()
	done := s.readingDone
	s.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// ReadingDone returns a channel closed when the current reading task
// exits, or nil when none was ever spawned.
func (s *AcquisitionSlave) ReadingDone() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readingDone
}

// ReadingErr returns the error of the last finished reading task.
func (s *AcquisitionSlave) ReadingErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readingErr
}

// StopReading raises the stop flag. The reading loop observes it at
// its next loop boundary through ShouldStop.
func (s *AcquisitionSlave) StopReading() {
	s.stopFlag.Store(true)
}

// ShouldStop reports whether the reading loop was asked to stop.
func (s *AcquisitionSlave) ShouldStop() bool {
	return s.stopFlag.Load()
}

// CancelReading cancels the reading context. Last resort for loops
// that ignore the stop flag because they are blocked on IO.
func (s *AcquisitionSlave) CancelReading() {
	s.mu.Lock()
	cancel := s.readingCancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// WaitReading joins the current reading task and propagates its
// error. Returns immediately when no task was ever spawned.
func (s *AcquisitionSlave) WaitReading(ctx context.Context) error {
	s.mu.Lock()
	done := s.readingDone
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
	case <-ctx.Done():
		return errors.WrapTransient(ctx.Err(), "AcquisitionSlave", "WaitReading", s.Name())
	}
	s.mu.Lock()
	err := s.readingErr
	s.mu.Unlock()
	if err != nil {
		return errors.Wrap(err, "AcquisitionSlave", "WaitReading", s.Name())
	}
	return nil
}
