package worker

import (
	"context"
	"sync"
	"time"

	"kioskd/internal/bus"
)

// Inbox is a single-slot command mailbox with a wake signal.
//
// A newly put command replaces any command not yet collected, so a worker
// busy with a slow external call only ever sees the most recent request:
// last write wins, commands never queue up behind a stuck domain.
//
// Thread Safety: any number of goroutines may Put; exactly one goroutine
// (the owning worker) may Wait.
type Inbox struct {
	mu      sync.Mutex
	cmd     bus.Command
	pending bool
	wake    chan struct{}
}

// NewInbox creates an empty inbox.
func NewInbox() *Inbox {
	return &Inbox{wake: make(chan struct{}, 1)}
}

// Put stores cmd as the pending command, replacing any previous one, and
// wakes the worker if it is waiting. It never blocks.
func (in *Inbox) Put(cmd bus.Command) {
	in.mu.Lock()
	in.cmd = cmd
	in.pending = true
	in.mu.Unlock()

	select {
	case in.wake <- struct{}{}:
	default:
	}
}

// Wait blocks until a command is pending, the timeout elapses, or ctx is
// cancelled. The boolean is false when no command was collected.
func (in *Inbox) Wait(ctx context.Context, timeout time.Duration) (bus.Command, bool) {
	if cmd, ok := in.take(); ok {
		return cmd, true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-in.wake:
		return in.take()
	case <-timer.C:
		return bus.Command{}, false
	case <-ctx.Done():
		return bus.Command{}, false
	}
}

// take clears and returns the pending command. It also drains a stale wake
// token so the next Wait does not spin on an empty slot.
func (in *Inbox) take() (bus.Command, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if !in.pending {
		return bus.Command{}, false
	}
	cmd := in.cmd
	in.cmd = bus.Command{}
	in.pending = false

	select {
	case <-in.wake:
	default:
	}
	return cmd, true
}
