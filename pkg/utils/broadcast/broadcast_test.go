package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/trainrace/pkg/model"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(time.Second):
		require.Fail(t, "timeout waiting for value")
	}
	var zero T
	return zero
}

func TestBroadcastServer_FanOut(t *testing.T) {
	source := make(chan model.Frame)
	b := NewBroadcastServer("test", source, WithTelemetry[model.Frame]("frames"))
	defer b.Close()

	s1 := b.Subscribe()
	s2 := b.Subscribe()
	source <- model.Frame{RaceKey: "abc", Seq: 1}

	assert.Equal(t, uint64(1), receive(t, s1).Seq)
	assert.Equal(t, uint64(1), receive(t, s2).Seq)
}

func TestBroadcastServer_CancelSubscription(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("test", source)
	defer b.Close()

	s1 := b.Subscribe()
	s2 := b.Subscribe()
	b.CancelSubscription(s1)
	_, ok := <-s1
	assert.False(t, ok)

	source <- 42
	assert.Equal(t, 42, receive(t, s2))
}

func TestBroadcastServer_SlowListenerIsSkipped(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("test", source, WithSendTimeout[int](time.Millisecond))
	defer b.Close()

	slow := b.Subscribe()
	fast := b.Subscribe()
	// buffer of the slow listener holds one value, the second one is dropped
	source <- 1
	assert.Equal(t, 1, receive(t, fast))
	source <- 2
	assert.Equal(t, 2, receive(t, fast))

	assert.Equal(t, 1, receive(t, slow))
	select {
	case v := <-slow:
		assert.Fail(t, "unexpected value", v)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBroadcastServer_Close(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("test", source)
	s := b.Subscribe()
	b.Close()
	_, ok := <-s
	assert.False(t, ok)

	late := b.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}

func TestBroadcastServer_SourceClosed(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("test", source)
	s := b.Subscribe()
	close(source)
	_, ok := <-s
	assert.False(t, ok)
	b.Close()
}
