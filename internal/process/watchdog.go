package process

import (
	"context"
	"os"
	"sync"
	"time"
)

type cause int

const (
	causeNone cause = iota
	causeTimeout
	causeCanceled
	causeAborted
)

// watchdog kills the tool's process group when the timeout elapses or the
// context ends, whichever comes first. It is the only asynchronous path
// that terminates a run.
type watchdog struct {
	proc     *os.Process
	done     chan struct{}
	finished chan struct{}
	once     sync.Once

	mu    sync.Mutex
	cause cause
}

func startWatchdog(ctx context.Context, proc *os.Process, timeout time.Duration) *watchdog {
	w := &watchdog{
		proc:     proc,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go w.run(ctx, timeout)
	return w
}

func (w *watchdog) run(ctx context.Context, timeout time.Duration) {
	defer close(w.finished)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		w.fire(causeTimeout)
	case <-ctx.Done():
		w.fire(causeCanceled)
	case <-w.done:
	}
}

// fire records the first kill cause and kills the process group.
func (w *watchdog) fire(c cause) {
	w.mu.Lock()
	if w.cause == causeNone {
		w.cause = c
	}
	w.mu.Unlock()
	_ = killGroup(w.proc)
}

// abort kills the tool on behalf of the session itself.
func (w *watchdog) abort() {
	w.fire(causeAborted)
}

// stop disarms the watchdog and returns why it killed the tool, if it did.
func (w *watchdog) stop() cause {
	w.once.Do(func() { close(w.done) })
	<-w.finished
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cause
}
