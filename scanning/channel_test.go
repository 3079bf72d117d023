package scanning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esrf-bliss/blisscore/errors"
)

func TestChannel_EmitDeliversInOrder(t *testing.T) {
	ch := NewChannel("diode:value", "float64", nil, WithUnit("uA"))

	var got []any
	unsub := ch.Subscribe(func(ev ChannelEvent) {
		assert.Equal(t, "diode:value", ev.Channel)
		assert.False(t, ev.Timestamp.IsZero())
		got = append(got, ev.Value)
	})

	ch.Emit(1.0)
	ch.EmitSlice([]any{2.0, 3.0})
	assert.Equal(t, []any{1.0, 2.0, 3.0}, got)

	unsub()
	ch.Emit(4.0)
	assert.Len(t, got, 3)

	// unsubscribing twice is harmless
	unsub()
}

func TestChannel_Duplicate(t *testing.T) {
	ch := NewChannel("mca:spectrum", "int64", []int{1024}, WithUnit("counts"))
	fired := false
	ch.Subscribe(func(ChannelEvent) { fired = true })

	dup := DuplicateChannel(ch)
	assert.Equal(t, ch.Name(), dup.Name())
	assert.Equal(t, ch.DType(), dup.DType())
	assert.Equal(t, ch.Shape(), dup.Shape())
	assert.Equal(t, ch.Unit(), dup.Unit())

	// subscribers are not carried over
	dup.Emit(int64(7))
	assert.False(t, fired)
}

func TestChannelList_Get(t *testing.T) {
	l := NewChannelList()
	a := NewChannel("a", "float64", nil)
	b := NewChannel("b", "float64", nil)
	l.Add(a, b)

	require.Equal(t, 2, l.Len())
	assert.Equal(t, []string{"a", "b"}, l.Names())

	got, err := l.Get("b")
	require.NoError(t, err)
	assert.Same(t, b, got)

	_, err = l.Get("missing")
	assert.ErrorIs(t, err, errors.ErrChannelNotFound)
}
