package worker

import (
	"context"
	"sync"
	"time"

	"kioskd/internal/bus"
	"kioskd/internal/infrastructure/logging"
)

// Status represents the current state of a worker loop.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
)

// Worker is implemented by each hardware/network domain. One goroutine owns
// each Worker; implementations never need internal locking for their own
// fields, only the shared Store.
type Worker interface {
	// Name identifies the worker in logs and status reports.
	Name() string

	// WaitTimeout bounds the inbox wait per iteration. It also paces Tick,
	// so domains with fine-grained polling (media liveness) return small
	// values and slow domains (dimming) return large ones.
	WaitTimeout() time.Duration

	// Startup runs once before the loop.
	Startup(ctx context.Context)

	// HandleCommand dispatches one command synchronously.
	HandleCommand(ctx context.Context, cmd bus.Command)

	// Tick runs every loop iteration, command or not. Domains keep their
	// own interval bookkeeping inside and re-read intervals from the live
	// settings, so reconfiguration takes effect without restart.
	Tick(ctx context.Context)

	// Shutdown runs once after the loop for final cleanup. No new work is
	// started; the passed context is not cancelled.
	Shutdown(ctx context.Context)
}

// Runner drives one worker through Idle → Running → Stopped. There is no
// failure state: caught errors are the worker's to log, and the loop keeps
// running until ctx is cancelled.
type Runner struct {
	worker Worker
	inbox  *Inbox
	logger *logging.Logger

	mu     sync.Mutex
	status Status
}

// NewRunner wraps a worker with its inbox and lifecycle state.
func NewRunner(w Worker, logger *logging.Logger) *Runner {
	return &Runner{
		worker: w,
		inbox:  NewInbox(),
		logger: logger.With("worker", w.Name()),
		status: StatusIdle,
	}
}

// Name returns the wrapped worker's name.
func (r *Runner) Name() string {
	return r.worker.Name()
}

// Inbox returns the worker's command mailbox.
func (r *Runner) Inbox() *Inbox {
	return r.inbox
}

// Status returns the current lifecycle state.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Runner) setStatus(s Status) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}

// Run executes the worker loop until ctx is cancelled. It is a goroutine
// body; the caller owns the goroutine. A panicking worker takes down only
// its own loop, never the process.
func (r *Runner) Run(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("worker panicked", "panic", rec)
			r.setStatus(StatusStopped)
		}
	}()

	r.setStatus(StatusRunning)
	r.logger.Info("worker started")

	r.worker.Startup(ctx)

	for {
		cmd, ok := r.inbox.Wait(ctx, r.worker.WaitTimeout())
		if ctx.Err() != nil {
			break
		}
		if ok {
			r.worker.HandleCommand(ctx, cmd)
		}

		r.worker.Tick(ctx)

		if ctx.Err() != nil {
			break
		}
	}

	r.worker.Shutdown(context.WithoutCancel(ctx))
	r.setStatus(StatusStopped)
	r.logger.Info("worker stopped")
}
