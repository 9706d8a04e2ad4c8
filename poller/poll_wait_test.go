//go:build baremetal

package poller

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// chanWaiter hosts the cooperative strategy on goroutines: one channel per
// parked token, checked against TokenReady before parking so a Wake that
// raced the registration is not lost.
type chanWaiter struct {
	mu     sync.Mutex
	parked map[Token]chan struct{}
}

func newChanWaiter() *chanWaiter {
	return &chanWaiter{parked: make(map[Token]chan struct{})}
}

func (cw *chanWaiter) Sleep(token Token, budget time.Duration) {
	ch := make(chan struct{}, 1)
	cw.mu.Lock()
	cw.parked[token] = ch
	cw.mu.Unlock()
	defer func() {
		cw.mu.Lock()
		delete(cw.parked, token)
		cw.mu.Unlock()
	}()

	if TokenReady(token) {
		return
	}

	if budget < 0 {
		<-ch
		return
	}
	select {
	case <-ch:
	case <-time.After(budget):
	}
}

func (cw *chanWaiter) Wake(token Token) {
	cw.mu.Lock()
	ch := cw.parked[token]
	cw.mu.Unlock()
	if ch != nil {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func installWaiter(t *testing.T) *chanWaiter {
	t.Helper()

	cw := newChanWaiter()
	SetWaiter(cw)
	t.Cleanup(func() { SetWaiter(nil) })
	return cw
}

func TestCoopPoll_SignalBeforePoll(t *testing.T) {
	installWaiter(t)

	w := NewWakeup()
	defer w.Close()

	w.Signal()

	fds := []PollFD{w.PollFD()}
	n, err := Poll(fds, 0)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NotZero(t, fds[0].Revents&EventRead)
}

func TestCoopPoll_CrossGoroutineWake(t *testing.T) {
	installWaiter(t)

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
	require.Less(t, time.Since(start), 250*time.Millisecond)

	w.Acknowledge()
}

func TestCoopPoll_DeadlineExpires(t *testing.T) {
	installWaiter(t)

	w := NewWakeup()
	defer w.Close()

	fds := []PollFD{w.PollFD()}
	start := time.Now()
	n, err := Poll(fds, 20*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestCoopPoll_AcknowledgeClears(t *testing.T) {
	installWaiter(t)

	w := NewWakeup()
	defer w.Close()

	w.Signal()
	w.Acknowledge()

	fds := []PollFD{w.PollFD()}
	n, err := Poll(fds, 0)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Zero(t, fds[0].Revents)
}

// The token must be registered before the readiness scan, so a Signal that
// lands between scan and sleep cannot be lost. A waiter that signals the
// moment the token shows up models the worst-case interleaving.
func TestCoopPoll_NoMissedWakeup(t *testing.T) {
	w := NewWakeup()
	defer w.Close()

	cw := newChanWaiter()
	SetWaiter(raceWaiter{cw, w})
	t.Cleanup(func() { SetWaiter(nil) })

	fds := []PollFD{w.PollFD()}
	start := time.Now()
	n, err := Poll(fds, 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Less(t, time.Since(start), time.Second)
}

type raceWaiter struct {
	*chanWaiter
	w *Wakeup
}

func (rw raceWaiter) Sleep(token Token, budget time.Duration) {
	// The registered token is visible here, exactly as it would be to a
	// signaller racing the park.
	go rw.w.Signal()
	rw.chanWaiter.Sleep(token, budget)
}

func TestCoopPoll_RawHandleNeverReady(t *testing.T) {
	installWaiter(t)

	fds := []PollFD{{Fd: 7, Events: EventRead}}
	n, err := Poll(fds, 0)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Zero(t, fds[0].Revents)
}
