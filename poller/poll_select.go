//go:build linux || aix || netbsd || openbsd || solaris

package poller

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// fdSetSize is the number of descriptors an FdSet can carry; select(2)
// cannot wait on anything at or above it.
var fdSetSize = int(unsafe.Sizeof(unix.FdSet{}) * 8)

// pollSelect emulates poll(2) with select(2): three bit vectors sized by
// the highest interesting descriptor, the millisecond timeout translated to
// a Timeval, and a membership re-test for every entry after the wait.
// Entries that requested nothing are never marked interesting and keep an
// empty Revents.
func pollSelect(fds []PollFD, timeout int) error {
	var rset, wset, xset unix.FdSet

	maxfd := 0
	for i := range fds {
		p := &fds[i]
		if p.Fd < 0 || p.Events == 0 {
			continue
		}
		if p.Fd >= fdSetSize {
			return fmt.Errorf("descriptor %d: %w", p.Fd, ErrHandleLimit)
		}
		if p.Events&EventRead != 0 {
			rset.Set(p.Fd)
		}
		if p.Events&EventWrite != 0 {
			wset.Set(p.Fd)
		}
		if p.Events&EventPri != 0 {
			xset.Set(p.Fd)
		}
		if p.Fd > maxfd {
			maxfd = p.Fd
		}
	}

	var tv *unix.Timeval
	if timeout >= 0 {
		t := unix.NsecToTimeval(int64(timeout) * int64(time.Millisecond))
		tv = &t
	}

	n, err := unix.Select(maxfd+1, &rset, &wset, &xset, tv)
	if err != nil {
		return err
	}
	if n <= 0 {
		return nil
	}

	for i := range fds {
		p := &fds[i]
		if p.Fd < 0 || p.Events == 0 {
			continue
		}
		if p.Events&EventRead != 0 && rset.IsSet(p.Fd) {
			p.Revents |= EventRead
		}
		if p.Events&EventWrite != 0 && wset.IsSet(p.Fd) {
			p.Revents |= EventWrite
		}
		if p.Events&EventPri != 0 && xset.IsSet(p.Fd) {
			p.Revents |= EventPri
		}
	}
	return nil
}
