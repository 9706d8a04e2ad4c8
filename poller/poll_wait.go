//go:build baremetal || js || wasip1

package poller

import (
	"time"

	"github.com/Allenxuxu/pollmux/log"
)

// pollBackend implements the wait as a registered-token sleep loop for
// targets with no kernel wait primitive. The ordering is load-bearing: the
// token is registered into every Wakeup entry before the first readiness
// scan, so a Signal landing between the scan and the sleep is either caught
// by the scan or delivered as a Wake on the already-registered token.
//
// Raw-handle entries cannot be observed on these targets and keep an empty
// Revents.
func pollBackend(fds []PollFD, timeout int) error {
	op := &waitOp{}
	for i := range fds {
		if w := fds[i].wk; w != nil {
			op.wakeups = append(op.wakeups, w)
		}
	}

	for _, w := range op.wakeups {
		w.token.Store(op)
	}
	// A late Signal must never find a token for a wait that is gone.
	defer func() {
		for _, w := range op.wakeups {
			w.token.Store(nil)
		}
	}()

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(time.Duration(timeout) * time.Millisecond)
	}

	for {
		ready := 0
		for i := range fds {
			p := &fds[i]
			p.Revents = 0
			if p.wk != nil && p.Events&EventRead != 0 && p.wk.signalled.Get() {
				p.Revents = EventRead
				ready++
			}
		}

		if ready > 0 || timeout == 0 {
			return nil
		}

		budget := time.Duration(-1)
		if timeout > 0 {
			budget = time.Until(deadline)
			if budget <= 0 {
				return nil
			}
		}

		if waiter == nil {
			log.Fatal("poller: no Waiter installed, call SetWaiter before a blocking Poll")
		}
		waiter.Sleep(Token(op), budget)
	}
}
