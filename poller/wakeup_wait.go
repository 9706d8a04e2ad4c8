//go:build baremetal || js || wasip1

package poller

import (
	stdatomic "sync/atomic"

	"github.com/Allenxuxu/pollmux/metrics"
	"github.com/Allenxuxu/toolkit/sync/atomic"
)

// Wakeup is a cross-thread binary event for targets without a kernel wait
// object: an atomic flag plus a registered reference to the wait it should
// notify.
type Wakeup struct {
	signalled atomic.Bool
	token     stdatomic.Pointer[waitOp]
	closed    atomic.Bool
}

// NewWakeup creates a Wakeup. This strategy needs no OS resource at all.
func NewWakeup() *Wakeup { return &Wakeup{} }

// SignalSafe reports whether Signal may be called from an asynchronous
// signal handler; the injected Wake primitive carries no such guarantee.
func (w *Wakeup) SignalSafe() bool { return false }

// PollFD returns an entry that reports EventRead while w is signalled. The
// entry stays valid until w is closed.
func (w *Wakeup) PollFD() PollFD {
	return PollFD{Fd: -1, Events: EventRead, wk: w}
}

// Signal marks w signalled. The flag is set before the token is read so a
// concurrent Poll that registered its token but has not slept yet either
// sees the flag on its re-scan or gets the Wake; the token itself is opaque
// and never dereferenced here.
func (w *Wakeup) Signal() {
	w.signalled.Set(true)

	if t := w.token.Load(); t != nil && waiter != nil {
		waiter.Wake(t)
	}

	if metrics.Enable.Get() {
		metrics.WakeupSignals.Inc()
	}
}

// Acknowledge returns w to quiescent. Acknowledging an unsignalled Wakeup
// is a no-op.
func (w *Wakeup) Acknowledge() {
	w.signalled.Set(false)
}

// Close invalidates w. It must not be referenced by an in-flight Poll call.
func (w *Wakeup) Close() error {
	if w.closed.Get() {
		return ErrClosed
	}
	w.closed.Set(true)
	return nil
}
