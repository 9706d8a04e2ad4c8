//go:build !baremetal && !js && !wasip1

package main

import (
	"time"

	"github.com/Allenxuxu/pollmux/log"
	"github.com/Allenxuxu/pollmux/poller"
)

// A worker that polls with a timeout and watches a Wakeup for cancellation.

func worker(w *poller.Wakeup, done chan<- struct{}) {
	defer close(done)

	for {
		fds := []poller.PollFD{w.PollFD()}
		n, err := poller.Poll(fds, 500*time.Millisecond)
		if err != nil {
			log.Error("poll:", err)
			return
		}
		if n > 0 {
			log.Info("worker: cancelled")
			return
		}
		log.Info("worker: tick")
	}
}

func main() {
	w := poller.NewWakeup()
	defer w.Close()

	done := make(chan struct{})
	go worker(w, done)

	time.Sleep(2 * time.Second)
	w.Signal()
	<-done
}
