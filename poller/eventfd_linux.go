//go:build linux && !baremetal

package poller

import "golang.org/x/sys/unix"

// tryEventfd prefers an eventfd: a single descriptor whose counter the
// kernel maintains. Any failure falls back to the pipe pair.
func tryEventfd() int {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return -1
	}
	return fd
}
