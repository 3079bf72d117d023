package scanning

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/esrf-bliss/blisscore/config"
	"github.com/esrf-bliss/blisscore/errors"
	"github.com/esrf-bliss/blisscore/metric"
)

// masterController is the master side of an acquisition object, as
// the chain and the iterators see it.
type masterController interface {
	AcquisitionObject
	AddSlave(AcquisitionObject)
	Slaves() []AcquisitionObject
	WaitSlaves() error
	Terminator() bool
}

// slaveController is the slave side of an acquisition object, as the
// iterators see it.
type slaveController interface {
	AcquisitionObject
	SpawnReading(ctx context.Context, impl Reader) bool
	ReadingAlive() bool
	ReadingDone() <-chan struct{}
	ReadingErr() error
	StopReading()
	WaitReading(ctx context.Context) error
}

type chainNode struct {
	obj      AcquisitionObject
	parent   *chainNode
	children []*chainNode
}

// AcquisitionChain assembles acquisition objects into a forest of
// trees, one tree per top master. Names are unique across the chain
// and an object belongs to at most one master.
type AcquisitionChain struct {
	parallelPrepare bool
	logger          *slog.Logger
	metrics         *metric.Metrics

	mu      sync.Mutex
	roots   []*chainNode
	byName  map[string]*chainNode
	presets []ChainPreset
}

// ChainOption configures an AcquisitionChain.
type ChainOption func(*AcquisitionChain)

// WithParallelPrepare prepares all nodes concurrently instead of
// level by level. A node still waits for its own parent.
func WithParallelPrepare() ChainOption {
	return func(c *AcquisitionChain) {
		c.parallelPrepare = true
	}
}

// WithChainLogger sets the logger used by the chain and its iterators.
func WithChainLogger(l *slog.Logger) ChainOption {
	return func(c *AcquisitionChain) {
		c.logger = l
	}
}

// WithChainMetrics enables phase and iteration metrics on the module
// registry.
func WithChainMetrics(registry *metric.MetricsRegistry) ChainOption {
	return func(c *AcquisitionChain) {
		c.metrics = registry.CoreMetrics()
	}
}

// WithChainConfig applies the configured scanning defaults.
func WithChainConfig(cfg *config.ScanningConfig) ChainOption {
	return func(c *AcquisitionChain) {
		c.parallelPrepare = cfg.ParallelPrepare
	}
}

// NewChain creates an empty acquisition chain.
func NewChain(opts ...ChainOption) *AcquisitionChain {
	c := &AcquisitionChain{
		byName: make(map[string]*chainNode),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add attaches slave under master, registering either object on first
// sight. master must be a master object; re-adding an existing edge
// is a no-op.
func (c *AcquisitionChain) Add(master, slave AcquisitionObject) error {
	mc, ok := master.(masterController)
	if !ok {
		return errors.WrapInvalid(errors.ErrInvalidValue, "AcquisitionChain", "Add",
			master.Name()+" is not a master")
	}
	if master == slave {
		return errors.WrapInvalid(errors.ErrInvalidValue, "AcquisitionChain", "Add",
			"cannot attach "+master.Name()+" to itself")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	mnode, err := c.nodeFor(master)
	if err != nil {
		return err
	}
	snode, err := c.nodeFor(slave)
	if err != nil {
		return err
	}

	if snode.parent == mnode {
		return nil
	}
	if snode.parent != nil {
		return errors.WrapInvalid(errors.ErrMultipleMasters, "AcquisitionChain", "Add", slave.Name())
	}
	for n := mnode; n != nil; n = n.parent {
		if n == snode {
			return errors.WrapInvalid(errors.ErrInvalidValue, "AcquisitionChain", "Add",
				"cycle through "+slave.Name())
		}
	}

	c.unroot(snode)
	snode.parent = mnode
	mnode.children = append(mnode.children, snode)
	mc.AddSlave(slave)
	slave.SetParent(master)

	c.logger.Debug("chain edge added", "master", master.Name(), "slave", slave.Name())
	return nil
}

// nodeFor returns the node registered for obj, creating it as a root
// on first sight. Rejects a second object with an already used name.
func (c *AcquisitionChain) nodeFor(obj AcquisitionObject) (*chainNode, error) {
	if n, ok := c.byName[obj.Name()]; ok {
		if n.obj != obj {
			return nil, errors.WrapInvalid(errors.ErrDuplicateName, "AcquisitionChain", "Add", obj.Name())
		}
		return n, nil
	}
	n := &chainNode{obj: obj}
	c.byName[obj.Name()] = n
	c.roots = append(c.roots, n)
	return n, nil
}

func (c *AcquisitionChain) unroot(n *chainNode) {
	for i, r := range c.roots {
		if r == n {
			c.roots = append(c.roots[:i], c.roots[i+1:]...)
			return
		}
	}
}

// Top returns the top masters, in registration order.
func (c *AcquisitionChain) Top() []AcquisitionObject {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]AcquisitionObject, len(c.roots))
	for i, r := range c.roots {
		out[i] = r.obj
	}
	return out
}

// Nodes returns every object of the chain in breadth-first order,
// masters before their children.
func (c *AcquisitionChain) Nodes() []AcquisitionObject {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []AcquisitionObject
	queue := append([]*chainNode(nil), c.roots...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		out = append(out, n.obj)
		queue = append(queue, n.children...)
	}
	return out
}

// Channels returns every acquisition channel published by the chain's
// objects.
func (c *AcquisitionChain) Channels() []*AcquisitionChannel {
	var out []*AcquisitionChannel
	for _, obj := range c.Nodes() {
		out = append(out, obj.Channels().All()...)
	}
	return out
}

// AddPreset registers a preset invoked by the Runner around the scan.
func (c *AcquisitionChain) AddPreset(p ChainPreset) {
	c.mu.Lock()
	c.presets = append(c.presets, p)
	c.mu.Unlock()
}

// Presets returns the registered presets.
func (c *AcquisitionChain) Presets() []ChainPreset {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ChainPreset, len(c.presets))
	copy(out, c.presets)
	return out
}

// IterList builds one iterator per top master. Each iterator owns the
// phase walk of its tree.
func (c *AcquisitionChain) IterList() []*AcquisitionChainIter {
	c.mu.Lock()
	defer c.mu.Unlock()
	iters := make([]*AcquisitionChainIter, 0, len(c.roots))
	for _, r := range c.roots {
		iters = append(iters, newChainIter(c, r))
	}
	return iters
}
