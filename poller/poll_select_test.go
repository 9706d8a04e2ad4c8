//go:build linux && !baremetal

package poller

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// The select(2) emulation is not the bound backend on linux; it is
// exercised directly here so the fallback keeps working where CI runs.

func TestPollSelect_Readable(t *testing.T) {
	rfd, wfd := pipeFds(t)

	_, err := os.NewFile(uintptr(wfd), "w").WriteString("x")
	require.NoError(t, err)

	fds := []PollFD{{Fd: rfd, Events: EventRead}}
	require.NoError(t, pollSelect(fds, 100))
	require.NotZero(t, fds[0].Revents&EventRead)
}

func TestPollSelect_Writable(t *testing.T) {
	rfd, wfd := pipeFds(t)

	fds := []PollFD{
		{Fd: rfd, Events: EventRead},
		{Fd: wfd, Events: EventWrite},
	}
	require.NoError(t, pollSelect(fds, 100))
	require.Zero(t, fds[0].Revents)
	require.NotZero(t, fds[1].Revents&EventWrite)
}

func TestPollSelect_Timeout(t *testing.T) {
	rfd, _ := pipeFds(t)

	fds := []PollFD{{Fd: rfd, Events: EventRead}}
	start := time.Now()
	require.NoError(t, pollSelect(fds, 20))
	require.Zero(t, fds[0].Revents)
	require.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestPollSelect_UninterestingFdUntouched(t *testing.T) {
	rfd, wfd := pipeFds(t)

	_, err := os.NewFile(uintptr(wfd), "w").WriteString("x")
	require.NoError(t, err)

	fds := []PollFD{{Fd: rfd}}
	require.NoError(t, pollSelect(fds, 0))
	require.Zero(t, fds[0].Revents)
}

func TestPollSelect_HandleLimit(t *testing.T) {
	fds := []PollFD{{Fd: fdSetSize, Events: EventRead}}
	err := pollSelect(fds, 0)
	require.ErrorIs(t, err, ErrHandleLimit)
}
