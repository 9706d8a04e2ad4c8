package poller

import (
	"math"
	"time"

	"github.com/Allenxuxu/pollmux/metrics"
)

// backend is the wait strategy bound for this target at build time. It is a
// variable only so tests can substitute a failing implementation.
var backend = pollBackend

// Poll blocks until at least one entry in fds is ready, the timeout elapses
// or the active backend fails.
//
// A negative timeout waits indefinitely, a zero timeout reports the current
// state without blocking, and positive timeouts are rounded up to whole
// milliseconds. On success the returned count is the number of entries
// whose Revents is non empty; 0 means the timeout elapsed with nothing
// ready. On failure every entry's Revents is cleared so stale readiness can
// never be acted upon. Entries whose Events is empty always come back with
// an empty Revents.
//
// Poll may create OS resources (an ephemeral kernel queue, worker
// goroutines) for the duration of one call; none outlive the call.
func Poll(fds []PollFD, timeout time.Duration) (int, error) {
	start := time.Now()

	for i := range fds {
		fds[i].Revents = 0
	}

	if err := backend(fds, timeoutMs(timeout)); err != nil {
		for i := range fds {
			fds[i].Revents = 0
		}
		return 0, err
	}

	// The count is recomputed by scanning rather than trusting the
	// backend: one entry may accumulate several kernel events.
	ready := 0
	for i := range fds {
		p := &fds[i]
		if p.Events == 0 {
			p.Revents = 0
			continue
		}
		p.Revents &= p.Events | EventHup | EventErr
		if p.Revents != 0 {
			ready++
		}
	}

	if metrics.Enable.Get() {
		metrics.PollTotal.Inc()
		metrics.PollReady.Add(float64(ready))
		metrics.PollDuration.Set(float64(time.Since(start).Microseconds()))
	}

	return ready, nil
}

// timeoutMs converts a timeout to the millisecond form shared by every
// backend: -1 blocks indefinitely, 0 polls, and small positive values round
// up so they never degrade into a busy zero-timeout probe.
func timeoutMs(d time.Duration) int {
	if d < 0 {
		return -1
	}
	if d == 0 {
		return 0
	}
	// The round-up addition below overflows for durations near the
	// Duration maximum; clamp to the widest wait every backend accepts.
	if d >= math.MaxInt32*time.Millisecond {
		return math.MaxInt32
	}
	ms := int((d + time.Millisecond - 1) / time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	return ms
}
