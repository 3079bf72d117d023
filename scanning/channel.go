package scanning

import (
	"sync"
	"time"

	"github.com/esrf-bliss/blisscore/errors"
	"github.com/esrf-bliss/blisscore/metric"
)

// ChannelEvent is one published value on an acquisition channel.
type ChannelEvent struct {
	Channel   string
	Value     any
	Timestamp time.Time
}

// AcquisitionChannel is a named conduit through which a device emits
// acquired values. Subscribers receive one event per emission, in
// emission order.
type AcquisitionChannel struct {
	name  string
	dtype string
	shape []int
	unit  string

	metrics *metric.Metrics

	mu          sync.RWMutex
	subscribers map[int]func(ChannelEvent)
	nextSub     int
}

// ChannelOption configures an AcquisitionChannel.
type ChannelOption func(*AcquisitionChannel)

// WithUnit sets the physical unit of the emitted values.
func WithUnit(unit string) ChannelOption {
	return func(c *AcquisitionChannel) {
		c.unit = unit
	}
}

// WithChannelMetrics enables emission counting on the module registry.
func WithChannelMetrics(registry *metric.MetricsRegistry) ChannelOption {
	return func(c *AcquisitionChannel) {
		c.metrics = registry.CoreMetrics()
	}
}

// NewChannel creates an acquisition channel. dtype is a free-form
// type hint ("float64", "int64", ...) and shape the per-point value
// shape, nil for scalars.
func NewChannel(name, dtype string, shape []int, opts ...ChannelOption) *AcquisitionChannel {
	c := &AcquisitionChannel{
		name:        name,
		dtype:       dtype,
		shape:       shape,
		subscribers: make(map[int]func(ChannelEvent)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the channel name.
func (c *AcquisitionChannel) Name() string { return c.name }

// DType returns the type hint of the emitted values.
func (c *AcquisitionChannel) DType() string { return c.dtype }

// Shape returns the per-point value shape, nil for scalars.
func (c *AcquisitionChannel) Shape() []int { return c.shape }

// Unit returns the physical unit, empty when unset.
func (c *AcquisitionChannel) Unit() string { return c.unit }

// Subscribe registers fn for every subsequent emission and returns a
// function removing the subscription. Callbacks run synchronously on
// the emitting goroutine, so they must be quick; hand off to a worker
// pool for anything slow.
func (c *AcquisitionChannel) Subscribe(fn func(ChannelEvent)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

// Emit publishes one value to all subscribers.
func (c *AcquisitionChannel) Emit(value any) {
	ev := ChannelEvent{Channel: c.name, Value: value, Timestamp: time.Now()}

	c.mu.RLock()
	fns := make([]func(ChannelEvent), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		fns = append(fns, fn)
	}
	c.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
	if c.metrics != nil {
		c.metrics.RecordChannelEmission(c.name)
	}
}

// EmitSlice publishes one event per element of values.
func (c *AcquisitionChannel) EmitSlice(values []any) {
	for _, v := range values {
		c.Emit(v)
	}
}

// DuplicateChannel returns a fresh channel with the same identity
// (name, dtype, shape, unit) and no subscribers. Used to mirror an
// external channel into another chain.
func DuplicateChannel(c *AcquisitionChannel) *AcquisitionChannel {
	d := NewChannel(c.name, c.dtype, c.shape)
	d.unit = c.unit
	d.metrics = c.metrics
	return d
}

// ChannelList is the ordered set of channels an acquisition object
// publishes on.
type ChannelList struct {
	mu       sync.RWMutex
	channels []*AcquisitionChannel
}

// NewChannelList returns an empty channel list.
func NewChannelList() *ChannelList {
	return &ChannelList{}
}

// Add appends channels to the list.
func (l *ChannelList) Add(channels ...*AcquisitionChannel) {
	l.mu.Lock()
	l.channels = append(l.channels, channels...)
	l.mu.Unlock()
}

// Get returns the channel with the given name.
func (l *ChannelList) Get(name string) (*AcquisitionChannel, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, c := range l.channels {
		if c.name == name {
			return c, nil
		}
	}
	return nil, errors.WrapInvalid(errors.ErrChannelNotFound, "ChannelList", "Get", name)
}

// Names returns the channel names in insertion order.
func (l *ChannelList) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, len(l.channels))
	for i, c := range l.channels {
		names[i] = c.name
	}
	return names
}

// All returns a copy of the channel slice.
func (l *ChannelList) All() []*AcquisitionChannel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*AcquisitionChannel, len(l.channels))
	copy(out, l.channels)
	return out
}

// Len returns the number of channels.
func (l *ChannelList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.channels)
}
