//go:build !windows

package poller

// Handle identifies a watched source: a file descriptor.
type Handle = int
