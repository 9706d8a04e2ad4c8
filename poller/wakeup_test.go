//go:build !baremetal && !js && !wasip1

package poller

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWakeup_SignalIdempotent(t *testing.T) {
	w := NewWakeup()
	defer w.Close()

	w.Signal()
	w.Signal()
	w.Signal()

	fds := []PollFD{w.PollFD()}
	n, err := Poll(fds, 0)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NotZero(t, fds[0].Revents&EventRead)

	w.Acknowledge()

	fds = []PollFD{w.PollFD()}
	n, err = Poll(fds, 0)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Zero(t, fds[0].Revents)
}

func TestWakeup_AcknowledgeTwice(t *testing.T) {
	w := NewWakeup()
	defer w.Close()

	w.Signal()
	w.Acknowledge()
	w.Acknowledge()

	fds := []PollFD{w.PollFD()}
	n, err := Poll(fds, 0)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

// A signal delivered while no Poll call is in progress must survive until
// the next call, however the active strategy stores it.
func TestWakeup_SignalBeforePoll(t *testing.T) {
	w := NewWakeup()
	defer w.Close()

	w.Signal()

	fds := []PollFD{w.PollFD()}
	n, err := Poll(fds, 0)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NotZero(t, fds[0].Revents&EventRead)
}

func TestWakeup_CrossGoroutine(t *testing.T) {
	w := NewWakeup()
	defer w.Close()

	go func() {
		time.Sleep(10 * time.Millisecond)
		w.Signal()
	}()

	fds := []PollFD{w.PollFD()}
	start := time.Now()
	n, err := Poll(fds, 500*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NotZero(t, fds[0].Revents&EventRead)
	require.Less(t, time.Since(start), 250*time.Millisecond)

	w.Acknowledge()
}

func TestWakeup_IndefinitePoll(t *testing.T) {
	w := NewWakeup()
	defer w.Close()

	go func() {
		time.Sleep(10 * time.Millisecond)
		w.Signal()
	}()

	fds := []PollFD{w.PollFD()}
	n, err := Poll(fds, -1)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	w.Acknowledge()
}

func TestWakeup_ConcurrentSignals(t *testing.T) {
	w := NewWakeup()
	defer w.Close()

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			w.Signal()
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	fds := []PollFD{w.PollFD()}
	n, err := Poll(fds, 0)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	w.Acknowledge()

	fds = []PollFD{w.PollFD()}
	n, err = Poll(fds, 0)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestWakeup_CloseTwice(t *testing.T) {
	w := NewWakeup()

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); !errors.Is(err, ErrClosed) {
		t.Fatal("wakeup should be closed")
	}
}

func TestPoll_EmptySetTimeout(t *testing.T) {
	start := time.Now()
	n, err := Poll(nil, 20*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestPoll_ZeroTimeoutIsBounded(t *testing.T) {
	w := NewWakeup()
	defer w.Close()

	fds := []PollFD{w.PollFD()}
	start := time.Now()
	n, err := Poll(fds, 0)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Less(t, time.Since(start), 100*time.Millisecond)
}
