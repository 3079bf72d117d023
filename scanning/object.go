package scanning

import (
	"context"

	"github.com/esrf-bliss/blisscore/errors"
)

// TriggerType tells a master how a device below it expects to be
// triggered.
type TriggerType int

const (
	// TriggerSoftware devices are triggered by a method call from
	// their master.
	TriggerSoftware TriggerType = iota
	// TriggerHardware devices are triggered by an electrical signal;
	// the chain never calls Trigger on them.
	TriggerHardware
)

// String returns the string representation of TriggerType
func (t TriggerType) String() string {
	switch t {
	case TriggerSoftware:
		return "software"
	case TriggerHardware:
		return "hardware"
	default:
		return "unknown"
	}
}

// AcquisitionObject is a node of an acquisition chain. Masters and
// slaves both implement it; concrete devices embed AcquisitionMaster
// or AcquisitionSlave and override the phases they support.
type AcquisitionObject interface {
	Name() string
	Parent() AcquisitionObject
	SetParent(AcquisitionObject)
	TriggerType() TriggerType
	PrepareOnce() bool
	StartOnce() bool
	NPoints() int
	Channels() *ChannelList

	ApplyParameters(ctx context.Context) error
	Prepare(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Trigger(ctx context.Context) error
	WaitReady(ctx context.Context) error
}

// Reader is implemented by slaves that run a long-lived reading loop
// alongside the phase protocol. The loop must return promptly once
// its slave's stop flag is raised or ctx is cancelled.
type Reader interface {
	Reading(ctx context.Context) error
}

// BaseObject carries the state common to every acquisition object.
// It provides no-op defaults for the optional phases and fail-fast
// defaults for Start and Trigger, which a device must override to be
// usable.
type BaseObject struct {
	name        string
	triggerType TriggerType
	npoints     int
	prepareOnce bool
	startOnce   bool
	parent      AcquisitionObject
	channels    *ChannelList
}

// ObjectOption configures a BaseObject at construction time.
type ObjectOption func(*BaseObject)

// WithTriggerType sets how the object's master triggers it.
func WithTriggerType(t TriggerType) ObjectOption {
	return func(b *BaseObject) {
		b.triggerType = t
	}
}

// WithNPoints sets the number of points the object produces per run.
// Zero means indefinite.
func WithNPoints(n int) ObjectOption {
	return func(b *BaseObject) {
		b.npoints = n
	}
}

// WithPrepareOnce makes Prepare run only on the first iteration.
func WithPrepareOnce() ObjectOption {
	return func(b *BaseObject) {
		b.prepareOnce = true
	}
}

// WithStartOnce makes Start run only on the first iteration.
func WithStartOnce() ObjectOption {
	return func(b *BaseObject) {
		b.startOnce = true
	}
}

// NewBaseObject creates the embedded core of an acquisition object.
func NewBaseObject(name string, opts ...ObjectOption) BaseObject {
	b := BaseObject{
		name:        name,
		triggerType: TriggerSoftware,
		channels:    NewChannelList(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Name returns the object name, unique within a chain.
func (b *BaseObject) Name() string { return b.name }

// Parent returns the master this object is attached to, or nil for a
// top master.
func (b *BaseObject) Parent() AcquisitionObject { return b.parent }

// SetParent records the owning master. Called by AcquisitionChain.Add.
func (b *BaseObject) SetParent(p AcquisitionObject) { b.parent = p }

// TriggerType returns how the object expects to be triggered.
func (b *BaseObject) TriggerType() TriggerType { return b.triggerType }

// PrepareOnce reports whether Prepare runs only on the first iteration.
func (b *BaseObject) PrepareOnce() bool { return b.prepareOnce }

// StartOnce reports whether Start runs only on the first iteration.
func (b *BaseObject) StartOnce() bool { return b.startOnce }

// NPoints returns the number of points per run, zero for indefinite.
func (b *BaseObject) NPoints() int { return b.npoints }

// Channels returns the object's acquisition channels.
func (b *BaseObject) Channels() *ChannelList { return b.channels }

// ApplyParameters is a no-op by default.
func (b *BaseObject) ApplyParameters(ctx context.Context) error { return nil }

// Prepare is a no-op by default.
func (b *BaseObject) Prepare(ctx context.Context) error { return nil }

// Stop is a no-op by default.
func (b *BaseObject) Stop(ctx context.Context) error { return nil }

// WaitReady is a no-op by default.
func (b *BaseObject) WaitReady(ctx context.Context) error { return nil }

// Start must be overridden by concrete devices.
func (b *BaseObject) Start(ctx context.Context) error {
	return errors.WrapFatal(errors.ErrNotImplemented, "AcquisitionObject", "Start", b.name)
}

// Trigger must be overridden by concrete software-triggered devices.
func (b *BaseObject) Trigger(ctx context.Context) error {
	return errors.WrapFatal(errors.ErrNotImplemented, "AcquisitionObject", "Trigger", b.name)
}
