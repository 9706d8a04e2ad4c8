//go:build (darwin || dragonfly || freebsd) && !baremetal

package poller

import (
	"sync"
	stdatomic "sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/Allenxuxu/pollmux/log"
	"github.com/Allenxuxu/pollmux/metrics"
	"github.com/Allenxuxu/toolkit/sync/atomic"
)

// Each Wakeup carries its own EVFILT_USER identity so several can share one
// ephemeral queue.
var wakeupIdent int64

// Wakeup is a cross-thread binary event backed by a kqueue EVFILT_USER
// filter. It can be signalled while unbound from any queue; the pending
// count is replayed when a Poll call binds it, so no signal is lost across
// bind/unbind cycles.
type Wakeup struct {
	mu      sync.Mutex
	kq      int
	pending uint
	id      int
	closed  atomic.Bool
}

// NewWakeup creates a Wakeup. This strategy allocates no kernel object up
// front; the filter registration belongs to the Poll call that binds it.
func NewWakeup() *Wakeup {
	return &Wakeup{
		kq: -1,
		id: int(stdatomic.AddInt64(&wakeupIdent, 1)),
	}
}

// SignalSafe reports whether Signal may be called from an asynchronous
// signal handler. The lock around the bind state rules that out here.
func (w *Wakeup) SignalSafe() bool { return false }

// PollFD returns an entry that reports EventRead while w is signalled. The
// entry stays valid until w is closed.
func (w *Wakeup) PollFD() PollFD {
	return PollFD{Fd: -1, Events: EventRead, wk: w}
}

// Signal marks w signalled. Repeated signals before one Acknowledge
// collapse to "still signalled".
func (w *Wakeup) Signal() {
	w.mu.Lock()
	w.signalLocked()
	w.mu.Unlock()

	if metrics.Enable.Get() {
		metrics.WakeupSignals.Inc()
	}
}

func (w *Wakeup) signalLocked() {
	if w.kq != -1 {
		var ev unix.Kevent_t
		unix.SetKevent(&ev, w.id, unix.EVFILT_USER, 0)
		ev.Fflags = unix.NOTE_TRIGGER
		if _, err := unix.Kevent(w.kq, []unix.Kevent_t{ev}, nil, nil); err != nil {
			log.Warn("[wakeup trigger]", err)
		}
	}
	w.pending++
}

// Acknowledge returns w to quiescent: the filter is dropped and re-added so
// the bound queue forgets any accumulated trigger, and the pending count is
// cleared. Acknowledging an unsignalled Wakeup is a no-op.
func (w *Wakeup) Acknowledge() {
	w.mu.Lock()
	if w.kq != -1 {
		evs := make([]unix.Kevent_t, 2)
		unix.SetKevent(&evs[0], w.id, unix.EVFILT_USER, unix.EV_DELETE)
		unix.SetKevent(&evs[1], w.id, unix.EVFILT_USER, unix.EV_ADD)
		evs[1].Fflags = unix.NOTE_FFCOPY
		_, _ = unix.Kevent(w.kq, evs, nil, nil)
	}
	w.pending = 0
	w.mu.Unlock()
}

// realize binds w to the ephemeral queue of one in-progress Poll call. A
// signal that arrived while unbound is replayed so the wait that follows
// observes it.
func (w *Wakeup) realize(kq int) {
	w.mu.Lock()
	w.kq = kq
	if w.pending != 0 {
		w.signalLocked()
	}
	w.mu.Unlock()
}

// unrealize detaches w from the queue; the caller is about to close it.
func (w *Wakeup) unrealize() {
	w.mu.Lock()
	w.kq = -1
	w.mu.Unlock()
}

// Close invalidates w. It must not be referenced by an in-flight Poll call.
func (w *Wakeup) Close() error {
	if w.closed.Get() {
		return ErrClosed
	}
	w.closed.Set(true)
	return nil
}
