package dimmer

import (
	"context"
	"fmt"
	"time"

	"kioskd/internal/bus"
	"kioskd/internal/infrastructure/logging"
	"kioskd/internal/logbook"
	"kioskd/internal/state"
)

const (
	// waitTimeout is long: brightness only matters on minute boundaries.
	waitTimeout = 10 * time.Second

	// minBrightness is the floor for automatic dimming, so the panel never
	// goes fully dark on a schedule mistake.
	minBrightness = 10

	// applyThreshold suppresses hardware writes for changes smaller than
	// this, keeping sysfs churn down during long ramps.
	applyThreshold = 5
)

// Deps carries the collaborators the worker needs.
type Deps struct {
	// Store holds the dimming schedule settings.
	Store *state.Store

	// Recorder is the kiosk event journal.
	Recorder *logbook.Recorder

	// Backlight applies brightness to hardware.
	Backlight *Backlight

	// Logger is the operational logger.
	Logger *logging.Logger
}

// Worker drives the display backlight from the day/night schedule, with a
// manual override path for the UI brightness slider.
//
// All methods run on the single runner goroutine; no locking is needed.
type Worker struct {
	store     *state.Store
	recorder  *logbook.Recorder
	backlight *Backlight
	logger    *logging.Logger

	// override pins brightness until dimming_auto clears it.
	override bool

	// applied is the last brightness written to hardware, -1 before the
	// first write.
	applied int

	// lastMinute gates evaluation to minute boundaries.
	lastMinute int

	// reportedFailure collapses repeated apply errors into one journal
	// entry until a write succeeds again.
	reportedFailure bool

	// now is swappable for tests.
	now func() time.Time
}

// New creates the worker.
func New(deps Deps) (*Worker, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Recorder == nil {
		return nil, fmt.Errorf("recorder is required")
	}
	if deps.Backlight == nil {
		return nil, fmt.Errorf("backlight is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &Worker{
		store:      deps.Store,
		recorder:   deps.Recorder,
		backlight:  deps.Backlight,
		logger:     deps.Logger.With("component", "dimmer"),
		applied:    -1,
		lastMinute: -1,
		now:        time.Now,
	}, nil
}

// Name implements worker.Worker.
func (w *Worker) Name() string {
	return "dimming"
}

// WaitTimeout implements worker.Worker.
func (w *Worker) WaitTimeout() time.Duration {
	return waitTimeout
}

// Startup applies the scheduled brightness immediately so the panel does not
// sit at its boot-time level until the next minute boundary.
func (w *Worker) Startup(ctx context.Context) {
	w.recorder.Info("Dimming service started")
	w.evaluate(ctx, w.now())
}

// HandleCommand implements worker.Worker.
func (w *Worker) HandleCommand(ctx context.Context, cmd bus.Command) {
	switch cmd.Type {
	case bus.CmdDimmingSetBrightness:
		level := clampPercent(cmd.Brightness)
		if w.apply(ctx, level) {
			w.override = true
			w.recorder.Action("Brightness set to %d%% (manual)", level)
		}

	case bus.CmdDimmingAuto:
		if w.override {
			w.override = false
			w.recorder.Action("Brightness returned to automatic control")
		}
		// Re-evaluate now rather than waiting for the minute to roll over.
		w.applied = -1
		w.evaluate(ctx, w.now())

	default:
		w.logger.Debug("ignoring command", "type", string(cmd.Type))
	}
}

// Tick evaluates the schedule once per wall-clock minute.
func (w *Worker) Tick(ctx context.Context) {
	now := w.now()
	minute := now.Hour()*60 + now.Minute()
	if minute == w.lastMinute {
		return
	}
	w.lastMinute = minute
	w.evaluate(ctx, now)
}

// Shutdown implements worker.Worker. The last applied brightness is left in
// place: a restart should not flash the panel.
func (w *Worker) Shutdown(context.Context) {}

// evaluate computes the scheduled target and applies it when it has moved
// far enough from the last written level.
func (w *Worker) evaluate(ctx context.Context, now time.Time) {
	if w.override {
		return
	}

	ds := w.store.GetSettings().Dimming
	if !ds.Enabled {
		return
	}

	sched, err := ParseSchedule(ds)
	if err != nil {
		w.logger.Warn("invalid dimming schedule", "error", err)
		return
	}

	target := sched.TargetPercent(now)
	if w.applied >= 0 && abs(target-w.applied) < applyThreshold {
		return
	}
	if w.apply(ctx, target) {
		w.logger.Debug("brightness applied", "percent", target)
	}
}

// apply writes level to hardware and updates the bookkeeping. Failures are
// journaled once and retried silently until a write lands.
func (w *Worker) apply(ctx context.Context, level int) bool {
	if err := w.backlight.Apply(ctx, level); err != nil {
		if !w.reportedFailure {
			w.reportedFailure = true
			w.recorder.Error("Failed to set brightness: %v", err)
		} else {
			w.logger.Debug("brightness apply failed", "error", err)
		}
		return false
	}
	w.reportedFailure = false
	w.applied = level
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
