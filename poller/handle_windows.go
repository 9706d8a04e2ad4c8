//go:build windows

package poller

import "golang.org/x/sys/windows"

// Handle identifies a watched source: a waitable OS handle.
type Handle = windows.Handle
