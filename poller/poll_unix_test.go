//go:build !windows && !baremetal && !js && !wasip1

package poller

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func pipeFds(t *testing.T) (int, int) {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = r.Close()
		_ = w.Close()
	})
	return int(r.Fd()), int(w.Fd())
}

func TestPoll_PipeNotReadable(t *testing.T) {
	rfd, _ := pipeFds(t)

	fds := []PollFD{{Fd: rfd, Events: EventRead}}
	n, err := Poll(fds, 0)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Zero(t, fds[0].Revents)
}

func TestPoll_PipeReadable(t *testing.T) {
	rfd, wfd := pipeFds(t)

	_, err := os.NewFile(uintptr(wfd), "w").WriteString("x")
	require.NoError(t, err)

	fds := []PollFD{{Fd: rfd, Events: EventRead}}
	n, err := Poll(fds, 100*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NotZero(t, fds[0].Revents&EventRead)
}

func TestPoll_PipeWritable(t *testing.T) {
	_, wfd := pipeFds(t)

	fds := []PollFD{{Fd: wfd, Events: EventWrite}}
	n, err := Poll(fds, 100*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NotZero(t, fds[0].Revents&EventWrite)
}

func TestPoll_MixedEntries(t *testing.T) {
	rfd, wfd := pipeFds(t)
	w := NewWakeup()
	defer w.Close()

	w.Signal()

	fds := []PollFD{
		{Fd: rfd, Events: EventRead},
		{Fd: wfd, Events: EventWrite},
		w.PollFD(),
	}
	n, err := Poll(fds, 100*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Zero(t, fds[0].Revents)
	require.NotZero(t, fds[1].Revents&EventWrite)
	require.NotZero(t, fds[2].Revents&EventRead)

	w.Acknowledge()
}

// Positional matching: readiness lands on the entry that asked for it, not
// on its neighbours.
func TestPoll_PositionalRevents(t *testing.T) {
	r1, _ := pipeFds(t)
	r2, w2 := pipeFds(t)

	_, err := os.NewFile(uintptr(w2), "w2").WriteString("x")
	require.NoError(t, err)

	fds := []PollFD{
		{Fd: r1, Events: EventRead},
		{Fd: r2, Events: EventRead},
	}
	n, err := Poll(fds, 100*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Zero(t, fds[0].Revents)
	require.NotZero(t, fds[1].Revents&EventRead)
}
