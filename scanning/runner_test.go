package scanning

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_TimerScanEndToEnd(t *testing.T) {
	rec := &recorder{}
	chain := NewChain()

	timer := NewSoftwareTimerMaster("timer", 2*time.Millisecond, 5)
	// the reading loop spans the whole scan, so prepare/start run once
	diode := newTestSlave("diode", rec, WithPrepareOnce(), WithStartOnce())
	diode.blockReading = true
	diode.values = NewChannel("diode:value", "int64", nil)
	diode.Channels().Add(diode.values)
	require.NoError(t, chain.Add(timer, diode))

	var mu sync.Mutex
	var values []any
	var elapsed []any
	diode.values.Subscribe(func(ev ChannelEvent) {
		mu.Lock()
		values = append(values, ev.Value)
		mu.Unlock()
	})
	timer.ElapsedChannel().Subscribe(func(ev ChannelEvent) {
		mu.Lock()
		elapsed = append(elapsed, ev.Value)
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, NewRunner().Run(ctx, chain))

	mu.Lock()
	defer mu.Unlock()
	// one point per iteration, values forwarded unchanged and in order
	assert.Equal(t, []any{int64(1), int64(2), int64(3), int64(4), int64(5)}, values)
	require.Len(t, elapsed, 5)
	for i := 1; i < len(elapsed); i++ {
		assert.GreaterOrEqual(t, elapsed[i].(float64), elapsed[i-1].(float64))
	}
	assert.Equal(t, int32(5), diode.triggers.Load())

	// the unwind stopped the device and joined its reading loop
	assert.NotEqual(t, -1, rec.indexOf("diode:stop"))
	assert.False(t, diode.ReadingAlive())
	// one reading loop for the whole scan, prepared and started once
	assert.Equal(t, int32(1), diode.readings.Load())
	assert.Equal(t, 1, rec.count("diode:prepare"))
	assert.Equal(t, 1, rec.count("diode:start"))
}

func TestRunner_MaxIterationsCap(t *testing.T) {
	rec := &recorder{}
	chain := NewChain()
	timer := NewSoftwareTimerMaster("timer", time.Millisecond, 0) // indefinite
	diode := newTestSlave("diode", rec)
	require.NoError(t, chain.Add(timer, diode))

	runner := NewRunner(WithMaxIterations(3))
	require.NoError(t, runner.Run(context.Background(), chain))
	assert.Equal(t, int32(3), diode.triggers.Load())
}

func TestRunner_PresetsWrapTheScan(t *testing.T) {
	rec := &recorder{}
	chain := NewChain()
	timer := NewSoftwareTimerMaster("timer", time.Millisecond, 2)
	require.NoError(t, chain.Add(timer, newTestSlave("diode", rec)))

	var order []string
	var mu sync.Mutex
	mark := func(s string) func(context.Context, *AcquisitionChain) error {
		return func(context.Context, *AcquisitionChain) error {
			mu.Lock()
			order = append(order, s)
			mu.Unlock()
			return nil
		}
	}
	chain.AddPreset(ChainPresetFuncs{
		PrepareFunc: mark("prepare"),
		StartFunc:   mark("start"),
		StopFunc:    mark("stop"),
	})

	require.NoError(t, NewRunner().Run(context.Background(), chain))
	assert.Equal(t, []string{"prepare", "start", "stop"}, order)
}

func TestRunner_FailedStartStillUnwinds(t *testing.T) {
	rec := &recorder{}
	chain := NewChain()
	m := newTestMaster("timer", rec, WithNPoints(3))
	bad := newTestSlave("bad", rec)
	bad.startErr = errSensorBroken
	good := newTestSlave("good", rec)
	require.NoError(t, chain.Add(m, bad))
	require.NoError(t, chain.Add(m, good))

	err := NewRunner().Run(context.Background(), chain)
	require.ErrorIs(t, err, errSensorBroken)
	assert.NotEqual(t, -1, rec.indexOf("good:stop"))
	assert.NotEqual(t, -1, rec.indexOf("bad:stop"))
}

func TestRunner_EmptyChainRejected(t *testing.T) {
	err := NewRunner().Run(context.Background(), NewChain())
	assert.Error(t, err)
}

func TestSoftwareTimer_PacesIterations(t *testing.T) {
	rec := &recorder{}
	chain := NewChain()
	period := 10 * time.Millisecond
	timer := NewSoftwareTimerMaster("timer", period, 3)
	require.NoError(t, chain.Add(timer, newTestSlave("diode", rec)))

	begin := time.Now()
	require.NoError(t, NewRunner().Run(context.Background(), chain))

	// three points spaced by period: the two inter-point gaps must
	// have been waited out
	assert.GreaterOrEqual(t, time.Since(begin), 2*period)
	assert.Equal(t, 3, rec.count("diode:trigger"))
}
