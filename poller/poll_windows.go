//go:build windows && !baremetal

package poller

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/Allenxuxu/pollmux/log"
	"github.com/Allenxuxu/pollmux/metrics"
	tsync "github.com/Allenxuxu/toolkit/sync"
)

const (
	// maximumWaitObjects is the fixed per-call handle ceiling of the
	// native wait primitives.
	maximumWaitObjects = 64

	// One slot per worker is reserved for the shared stop event.
	maximumWaitObjectsPerWorker = maximumWaitObjects - 1

	qsAllInput    = 0x04FF
	mwmoAlertable = 0x0002

	waitObject0      = 0
	waitIOCompletion = 0x000000C0
	waitTimeout      = 0x00000102
	waitFailed       = 0xFFFFFFFF
)

// msgQueueHandle marks the pseudo-entry produced by MessagePollFD. It is
// INVALID_HANDLE_VALUE, which can never name a waitable object.
const msgQueueHandle = ^Handle(0)

var errWaitFailed = errors.New("wait for multiple objects failed")

var (
	moduser32   = windows.NewLazySystemDLL("user32.dll")
	modkernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procMsgWaitForMultipleObjectsEx = moduser32.NewProc("MsgWaitForMultipleObjectsEx")
	procWaitForMultipleObjectsEx    = modkernel32.NewProc("WaitForMultipleObjectsEx")
)

// MessagePollFD returns a pseudo-entry that reports EventRead when the
// calling thread's message queue holds pending input. The caller is
// responsible for keeping the polling goroutine on the thread that owns the
// queue (runtime.LockOSThread).
func MessagePollFD() PollFD {
	return PollFD{Fd: msgQueueHandle, Events: EventRead}
}

// waitData is one partition of the entry set: at most maximumWaitObjects
// handles, plus optionally the message-queue pseudo-entry and the fan-out
// stop entry.
type waitData struct {
	handles [maximumWaitObjects]windows.Handle
	entries [maximumWaitObjects]*PollFD
	n       int
	msgFD   *PollFD
	stopFD  *PollFD
	timeout uint32
	ready   int
}

func fillWaitData(fds []PollFD, timeout uint32, stopFD *PollFD, data *waitData) {
	data.timeout = timeout

	if stopFD != nil {
		data.stopFD = stopFD
		data.entries[data.n] = stopFD
		data.handles[data.n] = stopFD.Fd
		data.n++
	}

	for i := range fds {
		p := &fds[i]
		if data.n == maximumWaitObjects ||
			(data.msgFD != nil && data.n == maximumWaitObjects-1) {
			log.Warn("[poll] too many handles to wait for, truncating")
			break
		}

		switch {
		case p.Fd == msgQueueHandle && p.Events&EventRead != 0:
			data.msgFD = p
		case p.Fd != 0 && p.Fd != msgQueueHandle:
			data.entries[data.n] = p
			data.handles[data.n] = p.Fd
			data.n++
		}
	}
}

// pollRest performs one native wait over handles (plus, when msgFD is set,
// the calling thread's message queue) and records what it observed. It
// returns the number of caller entries made ready, 0 on timeout and -1 on
// failure.
func pollRest(msgFD, stopFD *PollFD, handles []windows.Handle, entries []*PollFD, timeout uint32) int {
	var (
		ready uint32
		err   error
	)

	nhandles := len(handles)
	switch {
	case msgFD != nil:
		ready, err = msgWaitForMultipleObjectsEx(handles, timeout, qsAllInput, mwmoAlertable)
	case nhandles == 0:
		if timeout == windows.INFINITE {
			return -1
		}
		// Nothing but the timeout to wait out. Waiting on our own
		// process handle is an alertable sleep.
		_, _ = windows.WaitForSingleObject(windows.CurrentProcess(), timeout)
		return 0
	default:
		ready, err = waitForMultipleObjectsEx(handles, timeout, true)
	}

	if ready == waitFailed {
		log.Warn("[poll] wait failed:", err)
		return -1
	}
	if ready == waitTimeout || ready == waitIOCompletion {
		return 0
	}

	if msgFD != nil && ready == waitObject0+uint32(nhandles) {
		msgFD.Revents |= EventRead

		// With a timeout, or nothing else to wait on, noticing pending
		// messages is enough.
		if timeout != 0 || nhandles == 0 {
			return 1
		}

		// No timeout and handles to poll: pick those up too.
		recursed := pollRest(nil, stopFD, handles, entries, 0)
		if recursed == -1 {
			return -1
		}
		return 1 + recursed
	}

	if ready < waitObject0+uint32(nhandles) {
		idx := int(ready - waitObject0)
		f := entries[idx]
		f.Revents = f.Events

		retval := 0
		if f != stopFD {
			retval = 1
		}

		// A zero-timeout probe keeps going past the first ready handle
		// so every already-ready one is reported.
		if timeout == 0 && idx+1 < nhandles {
			recursed := pollRest(nil, stopFD, handles[idx+1:], entries[idx+1:], 0)
			if recursed == -1 {
				return -1
			}
			return retval + recursed
		}
		return retval
	}

	return 0
}

// pollSingle runs the two-phase wait over one partition: a zero-timeout
// probe first so already-ready handles are all caught, then the real
// timeout only if nothing was immediately ready.
func pollSingle(data *waitData) int {
	if data.n > 1 || (data.n > 0 && data.msgFD != nil) {
		retval := pollRest(data.msgFD, data.stopFD, data.handles[:data.n], data.entries[:data.n], 0)
		if retval == 0 && (data.timeout == windows.INFINITE || data.timeout > 0) {
			retval = pollRest(data.msgFD, data.stopFD, data.handles[:data.n], data.entries[:data.n], data.timeout)
		}
		return retval
	}

	// Waiting for one thing only, no need for the probe.
	return pollRest(data.msgFD, data.stopFD, data.handles[:data.n], data.entries[:data.n], data.timeout)
}

func pollBackend(fds []PollFD, timeout int) error {
	timeoutMs := uint32(windows.INFINITE)
	if timeout >= 0 {
		timeoutMs = uint32(timeout)
	}

	if len(fds) <= maximumWaitObjects {
		data := &waitData{}
		fillWaitData(fds, timeoutMs, nil, data)
		if pollSingle(data) == -1 {
			return fmt.Errorf("poll: %w", errWaitFailed)
		}
		return nil
	}

	return pollFanout(fds, timeoutMs)
}

// pollFanout services an entry set larger than the per-call handle ceiling
// by partitioning it across worker goroutines, each waiting on its slice
// plus a shared stop event. This is pure coordination around the platform
// limit: the first worker to finish stops the rest, every worker is joined
// before returning, and a single failing worker fails the whole call.
func pollFanout(fds []PollFD, timeoutMs uint32) error {
	nworkers := (len(fds) + maximumWaitObjectsPerWorker - 1) / maximumWaitObjectsPerWorker
	if nworkers > maximumWaitObjectsPerWorker {
		log.Warn("[poll] too many handles to wait for in workers, truncating")
		nworkers = maximumWaitObjectsPerWorker
	}

	stopHandle, err := windows.CreateEvent(nil, 1, 0, nil)
	if err != nil {
		return fmt.Errorf("poll: creating stop event: %w", err)
	}
	defer windows.CloseHandle(stopHandle)

	doneHandle, err := windows.CreateEvent(nil, 1, 0, nil)
	if err != nil {
		return fmt.Errorf("poll: creating done event: %w", err)
	}
	defer windows.CloseHandle(doneHandle)

	workers := make([]waitData, nworkers)
	var msgFD *PollFD

	idx := 0
	for i := 0; i < nworkers; i++ {
		nfds := min(len(fds)-idx, maximumWaitObjectsPerWorker)
		// Each worker records stop readiness in its own entry so the
		// shared event never induces concurrent writes.
		stopFD := &PollFD{Fd: stopHandle, Events: EventRead}
		fillWaitData(fds[idx:idx+nfds], timeoutMs, stopFD, &workers[i])
		idx += nfds

		// Message-queue readiness is only observable from the calling
		// thread, so the orchestrator watches it alongside the workers.
		if workers[i].msgFD != nil {
			msgFD = workers[i].msgFD
			workers[i].msgFD = nil
		}
	}

	if metrics.Enable.Get() {
		metrics.FanoutWorkers.Add(float64(nworkers))
	}

	done := make(chan struct{}, nworkers)
	sw := tsync.WaitGroupWrapper{}
	for i := 0; i < nworkers; i++ {
		data := &workers[i]
		sw.AddAndRun(func() {
			data.ready = pollSingle(data)
			_ = windows.SetEvent(doneHandle)
			done <- struct{}{}
		})
	}

	// Wait for the first worker to come back; the workers themselves
	// bound the wait with the caller's timeout.
	msgReady := false
	if msgFD != nil {
		ready, _ := msgWaitForMultipleObjectsEx([]windows.Handle{doneHandle}, timeoutMs, qsAllInput, mwmoAlertable)
		if ready == waitObject0+1 {
			msgReady = true
		}
	} else {
		<-done
	}

	// Unblock whichever workers are still waiting, then collect them all.
	if err := windows.SetEvent(stopHandle); err != nil {
		log.Warn("[poll] failed to signal the stop event:", err)
	}
	sw.Wait()

	for i := 0; i < nworkers; i++ {
		if workers[i].ready == -1 {
			return fmt.Errorf("poll: %w", errWaitFailed)
		}
	}
	if msgReady {
		msgFD.Revents |= EventRead
	}
	return nil
}

func waitForMultipleObjectsEx(handles []windows.Handle, timeout uint32, alertable bool) (uint32, error) {
	var p unsafe.Pointer
	if len(handles) > 0 {
		p = unsafe.Pointer(&handles[0])
	}
	var alert uintptr
	if alertable {
		alert = 1
	}
	r1, _, err := procWaitForMultipleObjectsEx.Call(
		uintptr(len(handles)), uintptr(p), 0, uintptr(timeout), alert)
	if uint32(r1) == waitFailed {
		return waitFailed, err
	}
	return uint32(r1), nil
}

func msgWaitForMultipleObjectsEx(handles []windows.Handle, timeout, wakeMask, flags uint32) (uint32, error) {
	var p unsafe.Pointer
	if len(handles) > 0 {
		p = unsafe.Pointer(&handles[0])
	}
	r1, _, err := procMsgWaitForMultipleObjectsEx.Call(
		uintptr(len(handles)), uintptr(p), uintptr(timeout), uintptr(wakeMask), uintptr(flags))
	if uint32(r1) == waitFailed {
		return waitFailed, err
	}
	return uint32(r1), nil
}
