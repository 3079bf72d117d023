package scanning

import (
	"sync"

	"github.com/esrf-bliss/blisscore/errors"
)

// Params carries free-form scan, acquisition or controller
// parameters across the controller boundary.
type Params map[string]any

// CounterController is the boundary between device controllers and
// the acquisition chain. A controller turns parameters into the
// acquisition object that will drive its hardware for one scan.
type CounterController interface {
	Name() string

	// GetAcquisitionObject builds the controller's acquisition object
	// for one scan. parentAcqParams carries the acquisition
	// parameters of the masters above it, outermost first.
	GetAcquisitionObject(acqParams, ctrlParams Params, parentAcqParams []Params) (AcquisitionObject, error)

	// GetDefaultChainParameters derives the acquisition parameters
	// from the scan parameters, filling whatever acqParams leaves
	// unset.
	GetDefaultChainParameters(scanParams, acqParams Params) (Params, error)
}

// ChainBuilder materializes acquisition objects from controllers,
// exactly once per controller and per scan, and attaches them to a
// chain.
type ChainBuilder struct {
	chain *AcquisitionChain

	mu    sync.Mutex
	built map[CounterController]AcquisitionObject
}

// NewChainBuilder creates a builder populating chain.
func NewChainBuilder(chain *AcquisitionChain) *ChainBuilder {
	return &ChainBuilder{
		chain: chain,
		built: make(map[CounterController]AcquisitionObject),
	}
}

// Chain returns the chain being built.
func (b *ChainBuilder) Chain() *AcquisitionChain { return b.chain }

// Node returns the acquisition object for ctrl, building it on first
// use and returning the same object afterwards.
func (b *ChainBuilder) Node(ctrl CounterController, scanParams, acqParams, ctrlParams Params, parentAcqParams []Params) (AcquisitionObject, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if obj, ok := b.built[ctrl]; ok {
		return obj, nil
	}

	full, err := ctrl.GetDefaultChainParameters(scanParams, acqParams)
	if err != nil {
		return nil, errors.Wrap(err, "ChainBuilder", "Node", ctrl.Name())
	}
	obj, err := ctrl.GetAcquisitionObject(full, ctrlParams, parentAcqParams)
	if err != nil {
		return nil, errors.Wrap(err, "ChainBuilder", "Node", ctrl.Name())
	}
	if obj == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidValue, "ChainBuilder", "Node",
			ctrl.Name()+" produced no acquisition object")
	}
	b.built[ctrl] = obj
	return obj, nil
}

// AddUnder builds ctrl's object and attaches it below master in the
// chain.
func (b *ChainBuilder) AddUnder(master AcquisitionObject, ctrl CounterController, scanParams, acqParams, ctrlParams Params, parentAcqParams []Params) (AcquisitionObject, error) {
	obj, err := b.Node(ctrl, scanParams, acqParams, ctrlParams, parentAcqParams)
	if err != nil {
		return nil, err
	}
	if err := b.chain.Add(master, obj); err != nil {
		return nil, err
	}
	return obj, nil
}
