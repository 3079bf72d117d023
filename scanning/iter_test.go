package scanning

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esrf-bliss/blisscore/errors"
)

// buildTree assembles timer -> (diode, lima -> roi) and returns the
// chain plus its devices.
func buildTree(t *testing.T, rec *recorder, opts ...ChainOption) (*AcquisitionChain, *testMaster, *testSlave, *testMaster, *testSlave) {
	t.Helper()
	chain := NewChain(opts...)
	m := newTestMaster("timer", rec, WithNPoints(3))
	s1 := newTestSlave("diode", rec)
	sub := newTestMaster("lima", rec)
	s2 := newTestSlave("roi", rec)
	require.NoError(t, chain.Add(m, s1))
	require.NoError(t, chain.Add(m, sub))
	require.NoError(t, chain.Add(sub, s2))
	return chain, m, s1, sub, s2
}

func TestChainIter_PrepareRunsParentBeforeChild(t *testing.T) {
	rec := &recorder{}
	chain, _, _, _, _ := buildTree(t, rec)
	it := chain.IterList()[0]

	require.NoError(t, it.Prepare(context.Background()))

	timer := rec.indexOf("timer:prepare")
	diode := rec.indexOf("diode:prepare")
	lima := rec.indexOf("lima:prepare")
	roi := rec.indexOf("roi:prepare")
	require.NotEqual(t, -1, timer)
	require.NotEqual(t, -1, roi)
	assert.Less(t, timer, diode)
	assert.Less(t, timer, lima)
	assert.Less(t, lima, roi)
}

func TestChainIter_ParallelPrepareKeepsBranchOrder(t *testing.T) {
	rec := &recorder{}
	chain, _, s1, _, s2 := buildTree(t, rec, WithParallelPrepare())
	// slow children so overlapping branches would expose a violation
	s1.prepareDelay = 5 * time.Millisecond
	s2.prepareDelay = 5 * time.Millisecond
	it := chain.IterList()[0]

	require.NoError(t, it.Prepare(context.Background()))

	assert.Less(t, rec.indexOf("timer:prepare"), rec.indexOf("diode:prepare"))
	assert.Less(t, rec.indexOf("timer:prepare"), rec.indexOf("lima:prepare"))
	assert.Less(t, rec.indexOf("lima:prepare"), rec.indexOf("roi:prepare"))
}

func TestChainIter_OnceFlagsSkipAfterFirstIteration(t *testing.T) {
	rec := &recorder{}
	chain := NewChain()
	m := newTestMaster("timer", rec, WithNPoints(5))
	s := newTestSlave("diode", rec, WithPrepareOnce(), WithStartOnce())
	require.NoError(t, chain.Add(m, s))
	it := chain.IterList()[0]
	ctx := context.Background()

	readingDone := func() {
		require.Eventually(t, func() bool { return !s.ReadingAlive() }, time.Second, time.Millisecond)
	}

	require.NoError(t, it.Prepare(ctx))
	require.NoError(t, it.Start(ctx))
	readingDone()
	for i := 0; i < 2; i++ {
		cont, err := it.Next(ctx)
		require.NoError(t, err)
		require.True(t, cont)
		require.NoError(t, it.Prepare(ctx))
		require.NoError(t, it.Start(ctx))
		readingDone()
	}

	assert.Equal(t, 1, rec.count("diode:prepare"))
	assert.Equal(t, 1, rec.count("diode:start"))
	// the master is not flagged and runs every iteration
	assert.Equal(t, 3, rec.count("timer:prepare"))
	// the reading task is respawned each iteration regardless
	assert.Equal(t, int32(3), s.readings.Load())
	assert.Equal(t, 2, it.SequenceIndex())
}

func TestChainIter_OnceFlaggedReadingSpansIterations(t *testing.T) {
	rec := &recorder{}
	chain := NewChain()
	m := newTestMaster("timer", rec, WithNPoints(3))
	mca := newTestSlave("mca", rec,
		WithTriggerType(TriggerHardware), WithPrepareOnce(), WithStartOnce())
	mca.blockReading = true
	require.NoError(t, chain.Add(m, mca))
	it := chain.IterList()[0]
	ctx := context.Background()

	require.NoError(t, it.Prepare(ctx))
	require.NoError(t, it.Start(ctx))
	require.Eventually(t, mca.ReadingAlive, time.Second, time.Millisecond)

	// the loop stays alive across iterations; prepare must skip, not
	// refuse
	for i := 0; i < 2; i++ {
		cont, err := it.Next(ctx)
		require.NoError(t, err)
		require.True(t, cont)
		require.NoError(t, it.Prepare(ctx))
		require.NoError(t, it.Start(ctx))
		assert.True(t, mca.ReadingAlive())
	}

	assert.Equal(t, 1, rec.count("mca:prepare"))
	assert.Equal(t, 1, rec.count("mca:start"))
	assert.Equal(t, int32(1), mca.readings.Load())

	require.NoError(t, it.Stop(ctx))
	assert.False(t, mca.ReadingAlive())
}

func TestChainIter_ReprepareJoinsDrainingReading(t *testing.T) {
	rec := &recorder{}
	chain := NewChain()
	m := newTestMaster("timer", rec, WithNPoints(3))
	s := newTestSlave("diode", rec)
	require.NoError(t, chain.Add(m, s))
	it := chain.IterList()[0]
	ctx := context.Background()

	// no explicit synchronization with the reading goroutine between
	// iterations: prepare joins whatever is still tearing down
	require.NoError(t, it.Prepare(ctx))
	require.NoError(t, it.Start(ctx))
	for i := 0; i < 2; i++ {
		cont, err := it.Next(ctx)
		require.NoError(t, err)
		require.True(t, cont)
		require.NoError(t, it.Prepare(ctx))
		require.NoError(t, it.Start(ctx))
	}
	assert.Equal(t, 3, rec.count("diode:prepare"))
}

func TestChainIter_PrepareRefusedWhileReadingAlive(t *testing.T) {
	rec := &recorder{}
	chain := NewChain()
	m := newTestMaster("timer", rec, WithNPoints(3))
	s := newTestSlave("diode", rec)
	s.blockReading = true
	require.NoError(t, chain.Add(m, s))
	it := chain.IterList()[0]
	ctx := context.Background()

	require.NoError(t, it.Start(ctx))
	require.Eventually(t, s.ReadingAlive, time.Second, time.Millisecond)

	err := it.Prepare(ctx)
	assert.ErrorIs(t, err, errors.ErrReadingActive)
	assert.True(t, errors.IsFatal(err))

	require.NoError(t, it.Stop(ctx))
	assert.False(t, s.ReadingAlive())
}

func TestChainIter_DeadReadingAbortsNext(t *testing.T) {
	rec := &recorder{}
	chain := NewChain()
	m := newTestMaster("timer", rec, WithNPoints(3))
	s := &stuckSlave{testSlave: newTestSlave("diode", rec)}
	s.readingErr = errSensorBroken
	require.NoError(t, chain.Add(m, s))
	it := chain.IterList()[0]

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, it.Start(ctx))

	// the slave never reports ready; only the dying reading task can
	// unblock the wait
	_, err := it.Next(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errSensorBroken)
}

func TestChainIter_StopRunsOnEveryNodeAfterFailure(t *testing.T) {
	rec := &recorder{}
	chain, _, s1, _, _ := buildTree(t, rec)
	s1.startErr = errSensorBroken
	it := chain.IterList()[0]
	ctx := context.Background()

	require.NoError(t, it.Prepare(ctx))
	err := it.Start(ctx)
	require.ErrorIs(t, err, errSensorBroken)

	require.NoError(t, it.Stop(ctx))
	for _, mark := range []string{"timer:stop", "diode:stop", "lima:stop", "roi:stop"} {
		assert.NotEqual(t, -1, rec.indexOf(mark), mark)
	}
	// children unwind before their masters
	assert.Less(t, rec.indexOf("roi:stop"), rec.indexOf("lima:stop"))
	assert.Less(t, rec.indexOf("diode:stop"), rec.indexOf("timer:stop"))
}

func TestChainIter_NextExhaustsAtNPoints(t *testing.T) {
	rec := &recorder{}
	chain := NewChain()
	m := newTestMaster("timer", rec, WithNPoints(2))
	require.NoError(t, chain.Add(m, newTestSlave("diode", rec)))
	it := chain.IterList()[0]
	ctx := context.Background()

	cont, err := it.Next(ctx)
	require.NoError(t, err)
	assert.True(t, cont)

	cont, err = it.Next(ctx)
	require.NoError(t, err)
	assert.False(t, cont)
	assert.Equal(t, 2, it.SequenceIndex())
}

var errSensorBroken = errors.WrapTransient(errors.ErrConnectionLost, "device", "read", "sensor")

// stuckSlave never reports ready on its own.
type stuckSlave struct {
	*testSlave
}

func (s *stuckSlave) WaitReady(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
