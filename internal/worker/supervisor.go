package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kioskd/internal/bus"
	"kioskd/internal/infrastructure/logging"
	"kioskd/internal/logbook"
	"kioskd/internal/settings"
)

// dispatchPoll paces the command dispatch loop so shutdown is noticed even
// when no commands arrive.
const dispatchPoll = 500 * time.Millisecond

// SupervisorOptions configures a Supervisor.
type SupervisorOptions struct {
	// Commands is the shared command queue; the supervisor is its only
	// consumer. Required.
	Commands *bus.Queue[bus.Command]

	// Settings handles theme_change commands inline. Required.
	Settings *settings.Manager

	// Recorder publishes user-visible entries to the logbook. Required.
	Recorder *logbook.Recorder

	// Logger is the operational logger. Required.
	Logger *logging.Logger

	// Grace bounds how long Stop waits for workers to finish.
	// Zero means 5s.
	Grace time.Duration
}

// WorkerStatus is one row of the runtime status report.
type WorkerStatus struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
}

// Supervisor owns the worker goroutines and the command dispatch loop. It
// is the single consumer of the command queue: each command is routed to
// the inbox of the worker owning its domain, preserving the one-consumer
// contract while letting slow domains coalesce their backlog.
type Supervisor struct {
	commands *bus.Queue[bus.Command]
	settings *settings.Manager
	recorder *logbook.Recorder
	logger   *logging.Logger
	grace    time.Duration

	runners  []*Runner
	byDomain map[string]*Runner

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	started  bool
	stopOnce sync.Once
}

// NewSupervisor creates a Supervisor from opts. Workers are attached with
// Register before Start.
func NewSupervisor(opts SupervisorOptions) (*Supervisor, error) {
	if opts.Commands == nil {
		return nil, fmt.Errorf("command queue is required")
	}
	if opts.Settings == nil {
		return nil, fmt.Errorf("settings manager is required")
	}
	if opts.Recorder == nil {
		return nil, fmt.Errorf("recorder is required")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	grace := opts.Grace
	if grace <= 0 {
		grace = 5 * time.Second
	}
	return &Supervisor{
		commands: opts.Commands,
		settings: opts.Settings,
		recorder: opts.Recorder,
		logger:   opts.Logger.With("component", "supervisor"),
		grace:    grace,
		byDomain: make(map[string]*Runner),
	}, nil
}

// Register attaches a worker under a command domain. An empty domain means
// the worker receives no commands (it only ticks). Must be called before
// Start.
func (s *Supervisor) Register(domain string, w Worker) error {
	if s.started {
		return fmt.Errorf("cannot register %s: supervisor already started", w.Name())
	}
	if _, exists := s.byDomain[domain]; domain != "" && exists {
		return fmt.Errorf("domain %q already registered", domain)
	}

	r := NewRunner(w, s.logger)
	s.runners = append(s.runners, r)
	if domain != "" {
		s.byDomain[domain] = r
	}
	return nil
}

// Start launches one goroutine per registered worker plus the command
// dispatch loop. It returns immediately.
func (s *Supervisor) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.started = true

	for _, r := range s.runners {
		s.wg.Add(1)
		go func(r *Runner) {
			defer s.wg.Done()
			r.Run(ctx)
		}(r)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.dispatch(ctx)
	}()

	s.logger.Info("supervisor started", "workers", len(s.runners))
}

// Stop cancels every worker and waits up to the grace period for them to
// finish. Safe to call more than once.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			s.logger.Info("all workers stopped")
		case <-time.After(s.grace):
			s.logger.Error("workers did not stop within grace period", "grace", s.grace)
		}
	})
}

// Statuses reports each worker's lifecycle state, in registration order.
func (s *Supervisor) Statuses() []WorkerStatus {
	out := make([]WorkerStatus, 0, len(s.runners))
	for _, r := range s.runners {
		out = append(out, WorkerStatus{Name: r.Name(), Status: r.Status()})
	}
	return out
}

// dispatch consumes the command queue and routes each command to its
// domain's inbox.
func (s *Supervisor) dispatch(ctx context.Context) {
	for {
		cmd, ok := s.commands.Receive(dispatchPoll)
		if ctx.Err() != nil {
			return
		}
		if !ok {
			continue
		}
		s.route(cmd)
	}
}

func (s *Supervisor) route(cmd bus.Command) {
	if cmd.Type == bus.CmdThemeChange {
		if err := s.settings.SetTheme(cmd.Theme); err != nil {
			s.recorder.Error("Theme change to %q failed: %v", cmd.Theme, err)
		}
		return
	}

	r, ok := s.byDomain[cmd.Domain()]
	if !ok {
		s.recorder.Info("Ignoring unknown command type %q", cmd.Type)
		return
	}

	s.logger.Debug("command dispatched", "id", cmd.ID, "type", cmd.Type, "worker", r.Name())
	r.Inbox().Put(cmd)
}
