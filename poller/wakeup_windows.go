//go:build windows && !baremetal

package poller

import (
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/Allenxuxu/pollmux/log"
	"github.com/Allenxuxu/pollmux/metrics"
	"github.com/Allenxuxu/toolkit/sync/atomic"
)

// Wakeup is a cross-thread binary event backed by a manual-reset event
// handle, waited on directly by the Windows backend.
type Wakeup struct {
	handle windows.Handle
	closed atomic.Bool
}

// NewWakeup creates a Wakeup. Inability to allocate the event handle is
// fatal: every consumer of this primitive assumes construction succeeds.
func NewWakeup() *Wakeup {
	h, err := windows.CreateEvent(nil, 1, 0, nil)
	if err != nil {
		log.Fatal(fmt.Sprintf("creating event for Wakeup: %v", err))
	}
	return &Wakeup{handle: h}
}

// SignalSafe reports whether Signal may be called from an asynchronous
// signal handler; event objects carry no such guarantee.
func (w *Wakeup) SignalSafe() bool { return false }

// PollFD returns an entry that reports EventRead while w is signalled. The
// entry stays valid until w is closed.
func (w *Wakeup) PollFD() PollFD {
	return PollFD{Fd: w.handle, Events: EventRead}
}

// Signal sets the event. Repeated signals before one Acknowledge collapse
// to "still signalled".
func (w *Wakeup) Signal() {
	_ = windows.SetEvent(w.handle)

	if metrics.Enable.Get() {
		metrics.WakeupSignals.Inc()
	}
}

// Acknowledge resets the event back to quiescent. Acknowledging an
// unsignalled Wakeup is a no-op.
func (w *Wakeup) Acknowledge() {
	_ = windows.ResetEvent(w.handle)
}

// Close releases the event handle. w must not be referenced by an in-flight
// Poll call.
func (w *Wakeup) Close() error {
	if w.closed.Get() {
		return ErrClosed
	}
	w.closed.Set(true)
	return windows.CloseHandle(w.handle)
}
