package scanning

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// recorder collects "<device>:<phase>" marks in call order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(device, phase string) {
	r.mu.Lock()
	r.calls = append(r.calls, device+":"+phase)
	r.mu.Unlock()
}

func (r *recorder) indexOf(mark string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.calls {
		if c == mark {
			return i
		}
	}
	return -1
}

func (r *recorder) count(mark string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == mark {
			n++
		}
	}
	return n
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// testMaster records its phases and fans triggers out to its slaves.
type testMaster struct {
	*AcquisitionMaster
	rec      *recorder
	startErr error
}

func newTestMaster(name string, rec *recorder, opts ...ObjectOption) *testMaster {
	return &testMaster{AcquisitionMaster: NewMaster(name, opts...), rec: rec}
}

func (m *testMaster) Prepare(ctx context.Context) error {
	m.rec.record(m.Name(), "prepare")
	return nil
}

func (m *testMaster) Start(ctx context.Context) error {
	m.rec.record(m.Name(), "start")
	return m.startErr
}

func (m *testMaster) Trigger(ctx context.Context) error {
	m.rec.record(m.Name(), "trigger")
	if err := m.TriggerSlaves(ctx); err != nil {
		return err
	}
	return m.WaitSlaves()
}

func (m *testMaster) Stop(ctx context.Context) error {
	m.rec.record(m.Name(), "stop")
	return nil
}

// testSlave records its phases and runs a stop-flag driven reading
// loop. With a values channel set it emits the trigger count on every
// trigger.
type testSlave struct {
	*AcquisitionSlave
	rec *recorder

	prepareDelay time.Duration
	startErr     error
	readingErr   error
	blockReading bool

	triggers atomic.Int32
	readings atomic.Int32
	values   *AcquisitionChannel
}

func newTestSlave(name string, rec *recorder, opts ...ObjectOption) *testSlave {
	return &testSlave{AcquisitionSlave: NewSlave(name, opts...), rec: rec}
}

func (s *testSlave) Prepare(ctx context.Context) error {
	s.rec.record(s.Name(), "prepare")
	if s.prepareDelay > 0 {
		time.Sleep(s.prepareDelay)
	}
	return nil
}

func (s *testSlave) Start(ctx context.Context) error {
	s.rec.record(s.Name(), "start")
	return s.startErr
}

func (s *testSlave) Trigger(ctx context.Context) error {
	s.rec.record(s.Name(), "trigger")
	n := s.triggers.Add(1)
	if s.values != nil {
		s.values.Emit(int64(n))
	}
	return nil
}

func (s *testSlave) Stop(ctx context.Context) error {
	s.rec.record(s.Name(), "stop")
	return nil
}

func (s *testSlave) Reading(ctx context.Context) error {
	s.readings.Add(1)
	if s.readingErr != nil {
		return s.readingErr
	}
	if !s.blockReading {
		return nil
	}
	for !s.ShouldStop() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
	return nil
}
