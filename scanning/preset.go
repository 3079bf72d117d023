package scanning

import "context"

// ChainPreset hooks user code around a whole scan. Prepare runs
// before the chain is prepared, Start after the chain started its
// first iteration, Stop after the chain was stopped.
type ChainPreset interface {
	Prepare(ctx context.Context, chain *AcquisitionChain) error
	Start(ctx context.Context, chain *AcquisitionChain) error
	Stop(ctx context.Context, chain *AcquisitionChain) error
}

// ChainIterationPreset hooks user code around every iteration of a
// scan. A ChainPreset may additionally implement it.
type ChainIterationPreset interface {
	PrepareIteration(ctx context.Context, sequence int) error
	StopIteration(ctx context.Context, sequence int) error
}

// ChainPresetFuncs adapts plain functions into a ChainPreset. Nil
// fields are no-ops.
type ChainPresetFuncs struct {
	PrepareFunc func(ctx context.Context, chain *AcquisitionChain) error
	StartFunc   func(ctx context.Context, chain *AcquisitionChain) error
	StopFunc    func(ctx context.Context, chain *AcquisitionChain) error
}

// Prepare implements ChainPreset.
func (p ChainPresetFuncs) Prepare(ctx context.Context, chain *AcquisitionChain) error {
	if p.PrepareFunc == nil {
		return nil
	}
	return p.PrepareFunc(ctx, chain)
}

// Start implements ChainPreset.
func (p ChainPresetFuncs) Start(ctx context.Context, chain *AcquisitionChain) error {
	if p.StartFunc == nil {
		return nil
	}
	return p.StartFunc(ctx, chain)
}

// Stop implements ChainPreset.
func (p ChainPresetFuncs) Stop(ctx context.Context, chain *AcquisitionChain) error {
	if p.StopFunc == nil {
		return nil
	}
	return p.StopFunc(ctx, chain)
}
