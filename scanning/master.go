package scanning

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/esrf-bliss/blisscore/errors"
)

// AcquisitionMaster is the embedded core of devices that pace the
// acquisition and trigger the objects below them. The chain attaches
// children through AddSlave; TriggerSlaves fans a software trigger
// out to them asynchronously.
type AcquisitionMaster struct {
	BaseObject

	terminator bool

	slaveMu sync.Mutex
	slaves  []AcquisitionObject

	triggerMu sync.Mutex
	pending   atomic.Int32
	group     *errgroup.Group
}

// NewMaster creates a master acquisition object. Masters terminate
// the scan by default when their points are exhausted.
func NewMaster(name string, opts ...ObjectOption) *AcquisitionMaster {
	return &AcquisitionMaster{
		BaseObject: NewBaseObject(name, opts...),
		terminator: true,
	}
}

// Terminator reports whether exhausting this master ends the scan.
func (m *AcquisitionMaster) Terminator() bool { return m.terminator }

// SetTerminator controls whether exhausting this master ends the
// scan. Non-terminator top masters follow the other iterators.
func (m *AcquisitionMaster) SetTerminator(t bool) { m.terminator = t }

// AddSlave attaches a direct child. Called by AcquisitionChain.Add.
func (m *AcquisitionMaster) AddSlave(obj AcquisitionObject) {
	m.slaveMu.Lock()
	m.slaves = append(m.slaves, obj)
	m.slaveMu.Unlock()
}

// Slaves returns a copy of the direct children, in attach order.
func (m *AcquisitionMaster) Slaves() []AcquisitionObject {
	m.slaveMu.Lock()
	defer m.slaveMu.Unlock()
	out := make([]AcquisitionObject, len(m.slaves))
	copy(out, m.slaves)
	return out
}

// TriggerSlaves calls Trigger on every software-triggered child, each
// in its own goroutine. If triggers from a previous call are still
// running the devices cannot keep up with the pace and the scan must
// abort: ErrTriggerPending is returned without triggering anything.
func (m *AcquisitionMaster) TriggerSlaves(ctx context.Context) error {
	m.triggerMu.Lock()
	defer m.triggerMu.Unlock()

	if m.pending.Load() > 0 {
		return errors.WrapFatal(errors.ErrTriggerPending, "AcquisitionMaster", "TriggerSlaves", m.Name())
	}

	g := &errgroup.Group{}
	m.group = g
	for _, s := range m.Slaves() {
		if s.TriggerType() != TriggerSoftware {
			continue
		}
		m.pending.Add(1)
		g.Go(func() error {
			defer m.pending.Add(-1)
			return s.Trigger(ctx)
		})
	}
	return nil
}

// WaitSlaves joins the triggers launched by the last TriggerSlaves
// call and returns the first trigger error.
func (m *AcquisitionMaster) WaitSlaves() error {
	m.triggerMu.Lock()
	g := m.group
	m.triggerMu.Unlock()
	if g == nil {
		return nil
	}
	return g.Wait()
}

// WaitSlavesReady waits for every direct child to be ready for the
// next trigger.
func (m *AcquisitionMaster) WaitSlavesReady(ctx context.Context) error {
	for _, s := range m.Slaves() {
		if err := s.WaitReady(ctx); err != nil {
			return err
		}
	}
	return nil
}
