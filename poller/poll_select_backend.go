//go:build (aix || netbsd || openbsd || solaris) && !baremetal

package poller

// pollBackend uses the select(2) emulation: these targets have no poll(2)
// binding here, and netbsd/openbsd lack a portable EVFILT_USER for the
// kqueue strategy.
func pollBackend(fds []PollFD, timeout int) error {
	return pollSelect(fds, timeout)
}
