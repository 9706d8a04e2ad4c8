//go:build linux && !baremetal

package poller

import "golang.org/x/sys/unix"

// pollBackend delegates to poll(2). The kernel implements the wait contract
// directly, including level-triggered readiness; an interrupted wait is
// surfaced to the caller as unix.EINTR.
func pollBackend(fds []PollFD, timeout int) error {
	pfds := make([]unix.PollFd, len(fds))
	for i := range fds {
		p := &fds[i]
		pfds[i].Fd = int32(p.Fd)
		pfds[i].Events = nativeEvents(p.Events)
	}

	if _, err := unix.Poll(pfds, timeout); err != nil {
		return err
	}

	for i := range fds {
		fds[i].Revents = portableEvents(pfds[i].Revents)
	}
	return nil
}

func nativeEvents(ev Event) int16 {
	var n int16
	if ev&EventRead != 0 {
		n |= unix.POLLIN
	}
	if ev&EventWrite != 0 {
		n |= unix.POLLOUT
	}
	if ev&EventPri != 0 {
		n |= unix.POLLPRI
	}
	return n
}

func portableEvents(n int16) Event {
	var ev Event
	if n&unix.POLLIN != 0 {
		ev |= EventRead
	}
	if n&unix.POLLOUT != 0 {
		ev |= EventWrite
	}
	if n&unix.POLLPRI != 0 {
		ev |= EventPri
	}
	if n&unix.POLLHUP != 0 {
		ev |= EventHup
	}
	if n&(unix.POLLERR|unix.POLLNVAL) != 0 {
		ev |= EventErr
	}
	return ev
}
