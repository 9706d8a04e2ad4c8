//go:build (linux || aix || netbsd || openbsd || solaris) && !baremetal

package poller

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/Allenxuxu/pollmux/log"
	"github.com/Allenxuxu/pollmux/metrics"
	"github.com/Allenxuxu/toolkit/sync/atomic"
)

// Wakeup is a cross-thread, signal-handler-safe binary event backed by a
// counting descriptor where the platform has one, or by a non-blocking
// close-on-exec pipe pair otherwise. fds[1] == -1 marks the
// counting-descriptor mode.
type Wakeup struct {
	fds    [2]int
	closed atomic.Bool
}

// The counting descriptor requires a 64-bit increment per write.
var eventfdIncrement = []byte{1, 0, 0, 0, 0, 0, 0, 0}

var pipeByte = []byte{1}

// NewWakeup creates a Wakeup. Inability to allocate the descriptors is
// fatal: every consumer of this primitive assumes construction succeeds.
func NewWakeup() *Wakeup {
	w := &Wakeup{}

	if fd := tryEventfd(); fd != -1 {
		w.fds[0] = fd
		w.fds[1] = -1
		return w
	}

	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		log.Fatal(fmt.Sprintf("creating pipe for Wakeup: %v", err))
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			log.Fatal(fmt.Sprintf("setting Wakeup pipe non-blocking: %v", err))
		}
	}
	w.fds = p
	return w
}

// SignalSafe reports whether Signal may be called from an asynchronous
// signal handler. Descriptor writes qualify by construction.
func (w *Wakeup) SignalSafe() bool { return true }

// PollFD returns an entry that reports EventRead while w is signalled. The
// entry stays valid until w is closed.
func (w *Wakeup) PollFD() PollFD {
	return PollFD{Fd: w.fds[0], Events: EventRead}
}

// Signal marks w signalled. It never blocks and repeated signals before one
// Acknowledge collapse to "still signalled": a full counter or pipe means
// the state is already observable, so EAGAIN is left alone and only
// interrupted writes are retried.
func (w *Wakeup) Signal() {
	var err error
	for {
		if w.fds[1] == -1 {
			_, err = unix.Write(w.fds[0], eventfdIncrement)
		} else {
			_, err = unix.Write(w.fds[1], pipeByte)
		}
		if err != unix.EINTR {
			break
		}
	}

	if metrics.Enable.Get() {
		metrics.WakeupSignals.Inc()
	}
}

// Acknowledge drains the descriptor back to quiescent. Reads repeat while
// they come back full; a short read or EAGAIN means nothing is buffered any
// more. Acknowledging an unsignalled Wakeup is a no-op.
func (w *Wakeup) Acknowledge() {
	var buf [16]byte
	for {
		n, _ := unix.Read(w.fds[0], buf[:])
		if n != len(buf) {
			return
		}
	}
}

// Close releases the descriptors. w must not be referenced by an in-flight
// Poll call.
func (w *Wakeup) Close() error {
	if w.closed.Get() {
		return ErrClosed
	}
	w.closed.Set(true)

	_ = unix.Close(w.fds[0])
	if w.fds[1] != -1 {
		_ = unix.Close(w.fds[1])
	}
	return nil
}
