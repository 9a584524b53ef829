package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCountdownFinishes(t *testing.T) {
	finished := make(chan struct{})
	c := New(3, func() { close(finished) })
	c.SetTick(5 * time.Millisecond)

	c.Start()
	require.True(t, c.Running())

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not finish")
	}
	require.Equal(t, 0, c.Remaining())
	require.False(t, c.Running())
}

func TestCountdownStopSuppressesCallback(t *testing.T) {
	finished := make(chan struct{})
	c := New(1000, func() { close(finished) })
	c.SetTick(5 * time.Millisecond)

	c.Start()
	time.Sleep(30 * time.Millisecond)
	c.Stop()
	require.False(t, c.Running())

	remaining := c.Remaining()
	require.Less(t, remaining, 1000)
	require.Greater(t, remaining, 0)

	select {
	case <-finished:
		t.Fatal("callback fired after Stop")
	case <-time.After(50 * time.Millisecond):
	}
	// Paused, not advancing
	require.Equal(t, remaining, c.Remaining())
}

func TestCountdownResumeAfterStop(t *testing.T) {
	finished := make(chan struct{})
	c := New(4, func() { close(finished) })
	c.SetTick(5 * time.Millisecond)

	c.Start()
	time.Sleep(12 * time.Millisecond)
	c.Stop()

	c.Start()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not finish after resume")
	}
}

func TestCountdownStartIsIdempotent(t *testing.T) {
	c := New(2, nil)
	c.SetTick(time.Hour)
	c.Start()
	c.Start()
	require.True(t, c.Running())
	c.Stop()
	require.False(t, c.Running())
	// Stopping again is harmless
	c.Stop()
}

func TestCountdownZeroDoesNotStart(t *testing.T) {
	c := New(0, func() { t.Fatal("callback fired for empty countdown") })
	c.Start()
	require.False(t, c.Running())
}
