//go:build baremetal || js || wasip1

package poller

import "time"

// Token identifies one in-flight cooperative Poll call. It is opaque: a
// Waiter must never interpret it beyond handing it back to Wake or
// TokenReady.
type Token *waitOp

// Waiter supplies the sleep and wake primitives of the hosting environment.
//
// Sleep blocks the calling context until the budget elapses or Wake is
// invoked with the same token; a negative budget means no deadline. Sleep
// returning early is harmless, the poll loop re-scans and sleeps again.
// Wake unblocks every sleeper currently parked on token and may be invoked
// from any context the host considers safe.
type Waiter interface {
	Sleep(token Token, budget time.Duration)
	Wake(token Token)
}

var waiter Waiter

// SetWaiter injects the host's wait primitives. It must be called before
// the first blocking Poll; there is no usable default on these targets.
func SetWaiter(w Waiter) { waiter = w }

// TokenReady reports whether any Wakeup watched by the Poll call behind
// token has already been signalled. A Sleep implementation that registers
// the token somewhere before parking can use it to close the gap against a
// Wake that fired in between.
func TokenReady(token Token) bool {
	for _, w := range token.wakeups {
		if w.signalled.Get() {
			return true
		}
	}
	return false
}

// waitOp is the state of one in-flight cooperative Poll call.
type waitOp struct {
	wakeups []*Wakeup
}
