//go:build (dragonfly || freebsd) && !baremetal

package poller

import "golang.org/x/sys/unix"

// No EVFILT_EXCEPT on these targets; EventPri requests are not observable.

func appendExceptEvent(changes []unix.Kevent_t, _ *PollFD) []unix.Kevent_t {
	return changes
}

func applyReadBandEvent(_ *PollFD, _ *unix.Kevent_t) {}

func applyExceptEvent(_ []PollFD, _ *unix.Kevent_t) {}
