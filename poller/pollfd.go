package poller

// PollFD describes one watched source for a single Poll call: either a raw
// platform handle or, when produced by Wakeup.PollFD, a Wakeup reference.
// Events holds the requested bits. Revents holds the observed bits, is
// cleared at the start of every Poll call and is matched positionally to
// the input slice.
type PollFD struct {
	Fd      Handle
	Events  Event
	Revents Event

	// wk is set only for entries produced by Wakeup.PollFD on strategies
	// that are not handle backed. Nothing outside this package may
	// dereference it.
	wk *Wakeup
}
