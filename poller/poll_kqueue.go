//go:build (darwin || dragonfly || freebsd) && !baremetal

package poller

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/Allenxuxu/pollmux/log"
)

// pollBackend waits on a kqueue created for just this call. kqueue is a
// persistent filter-registration facility, so an ephemeral queue per call
// is what keeps this one-shot wait-list free of stale registrations across
// calls with changing entry sets.
//
// When the set contains Wakeup entries, filter registration and the wait
// are split into two kevent calls with the Wakeup bind in between: binding
// re-triggers any signal that accumulated while the Wakeup was unbound, so
// it is observed by the wait that follows.
func pollBackend(fds []PollFD, timeout int) error {
	kq, err := unix.Kqueue()
	if err != nil {
		return fmt.Errorf("kqueue: %w", err)
	}
	defer func() {
		for i := range fds {
			if w := fds[i].wk; w != nil {
				w.unrealize()
			}
		}
		_ = unix.Close(kq)
	}()

	changes := make([]unix.Kevent_t, 0, len(fds)*3)
	wakeups := 0
	for i := range fds {
		p := &fds[i]
		if p.wk != nil {
			var ev unix.Kevent_t
			unix.SetKevent(&ev, p.wk.id, unix.EVFILT_USER, unix.EV_ADD)
			ev.Fflags = unix.NOTE_FFCOPY
			changes = append(changes, ev)
			wakeups++
			continue
		}
		if p.Fd < 0 {
			continue
		}
		if p.Events&EventRead != 0 {
			var ev unix.Kevent_t
			unix.SetKevent(&ev, p.Fd, unix.EVFILT_READ, unix.EV_ADD)
			changes = append(changes, ev)
		}
		if p.Events&EventWrite != 0 {
			var ev unix.Kevent_t
			unix.SetKevent(&ev, p.Fd, unix.EVFILT_WRITE, unix.EV_ADD)
			changes = append(changes, ev)
		}
		changes = appendExceptEvent(changes, p)
	}

	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(int64(timeout) * int64(time.Millisecond))
		ts = &t
	}

	// A non-empty event buffer even for an empty entry set, so the kevent
	// call still sleeps out the timeout.
	events := make([]unix.Kevent_t, len(fds)*3+1)

	var n int
	if wakeups == 0 {
		n, err = unix.Kevent(kq, changes, events, ts)
	} else {
		_, err = unix.Kevent(kq, changes, nil, nil)
		if err == nil {
			for i := range fds {
				if w := fds[i].wk; w != nil {
					w.realize(kq)
				}
			}
			n, err = unix.Kevent(kq, nil, events, ts)
		}
	}
	if err != nil {
		if err != unix.EINTR {
			log.Warn("[kevent]", err)
		}
		return fmt.Errorf("kevent: %w", err)
	}

	for i := 0; i < n; i++ {
		applyKqueueEvent(fds, &events[i])
	}
	return nil
}

func applyKqueueEvent(fds []PollFD, ev *unix.Kevent_t) {
	switch {
	case ev.Filter == unix.EVFILT_READ:
		for i := range fds {
			p := &fds[i]
			if p.wk != nil || p.Fd != int(ev.Ident) {
				continue
			}
			if p.Events&EventRead != 0 {
				p.Revents |= EventRead
			}
			applyReadBandEvent(p, ev)
			if ev.Flags&unix.EV_EOF != 0 {
				p.Revents |= EventHup
				if ev.Fflags != 0 {
					p.Revents |= EventErr
				}
			}
			if ev.Flags&unix.EV_ERROR != 0 {
				p.Revents |= EventErr
			}
		}
	case ev.Filter == unix.EVFILT_WRITE:
		for i := range fds {
			p := &fds[i]
			if p.wk != nil || p.Fd != int(ev.Ident) {
				continue
			}
			if p.Events&EventWrite != 0 {
				p.Revents |= EventWrite
			}
			if ev.Flags&(unix.EV_EOF|unix.EV_ERROR) != 0 {
				p.Revents |= EventErr
			}
		}
	case ev.Filter == unix.EVFILT_USER:
		for i := range fds {
			p := &fds[i]
			if p.wk != nil && p.wk.id == int(ev.Ident) && p.Events&EventRead != 0 {
				p.Revents |= EventRead
			}
		}
	default:
		applyExceptEvent(fds, ev)
	}
}
