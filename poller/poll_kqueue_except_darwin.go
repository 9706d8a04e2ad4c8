//go:build darwin && !baremetal

package poller

import "golang.org/x/sys/unix"

// Out-of-band data maps to EventPri through EVFILT_EXCEPT, which only
// darwin exposes among the kqueue targets supported here.

func appendExceptEvent(changes []unix.Kevent_t, p *PollFD) []unix.Kevent_t {
	if p.Events&EventPri == 0 {
		return changes
	}
	var ev unix.Kevent_t
	unix.SetKevent(&ev, p.Fd, unix.EVFILT_EXCEPT, unix.EV_ADD)
	ev.Fflags = unix.NOTE_OOB
	return append(changes, ev)
}

// A read-filter event can also carry EV_OOBAND when out-of-band data is
// queued; that surfaces as EventPri alongside the except filter.
func applyReadBandEvent(p *PollFD, ev *unix.Kevent_t) {
	if ev.Flags&unix.EV_OOBAND != 0 && p.Events&EventPri != 0 {
		p.Revents |= EventPri
	}
}

func applyExceptEvent(fds []PollFD, ev *unix.Kevent_t) {
	if ev.Filter != unix.EVFILT_EXCEPT {
		return
	}
	for i := range fds {
		p := &fds[i]
		if p.wk != nil || p.Fd != int(ev.Ident) {
			continue
		}
		if p.Events&EventPri != 0 {
			p.Revents |= EventPri
		}
		if ev.Flags&unix.EV_EOF != 0 {
			p.Revents |= EventHup
		}
		if ev.Flags&unix.EV_ERROR != 0 {
			p.Revents |= EventErr
		}
	}
}
