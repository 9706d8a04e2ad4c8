// Package poller provides a portable readiness multiplexer in the style of
// poll(2) plus a cross-thread Wakeup primitive that integrates with it.
//
// A caller builds a slice of PollFD entries describing the sources it wants
// to wait on, possibly including entries obtained from a Wakeup, and calls
// Poll once. Poll blocks until at least one entry is ready or the timeout
// elapses. A Wakeup may be signalled from any other goroutine, thread or
// (on strategies where SignalSafe reports true) a signal handler, and the
// signal is guaranteed to make an in-progress or future Poll call return.
package poller

import "errors"

// Event represents readiness event bit mask.
type Event uint32

// Event values
const (
	EventRead  Event = 0x1
	EventWrite Event = 0x2
	EventPri   Event = 0x4
	EventHup   Event = 0x10
	EventErr   Event = 0x80
)

var (
	// ErrClosed reports use of a Wakeup after Close.
	ErrClosed = errors.New("wakeup is closed")

	// ErrHandleLimit reports an entry the active backend cannot service in
	// a single call.
	ErrHandleLimit = errors.New("too many handles for one poll call")
)
