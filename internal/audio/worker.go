package audio

import (
	"context"
	"fmt"
	"time"

	"kioskd/internal/bus"
	"kioskd/internal/hostcmd"
	"kioskd/internal/infrastructure/logging"
	"kioskd/internal/logbook"
	"kioskd/internal/settings"
	"kioskd/internal/state"
)

const (
	// waitTimeout is the inbox wait; audio commands should feel immediate.
	waitTimeout = time.Second

	// enumInterval is how often sinks are re-enumerated, so hot-plugged
	// hardware shows up without a manual refresh.
	enumInterval = 30 * time.Second
)

// Deps carries the collaborators the worker needs. All are required.
type Deps struct {
	// Store holds the audio status and the live settings.
	Store *state.Store

	// Recorder is the kiosk event journal.
	Recorder *logbook.Recorder

	// Settings persists device and volume changes the worker has applied.
	Settings *settings.Manager

	// Tool is the pactl binary, a bare name or an absolute path.
	Tool string

	// Logger is the operational logger.
	Logger *logging.Logger
}

// Worker owns the audio output domain: which sink is default, its volume,
// and the list of available sinks. All PulseAudio calls in the process go
// through here.
//
// All methods run on the single runner goroutine; no locking is needed.
type Worker struct {
	store    *state.Store
	recorder *logbook.Recorder
	settings *settings.Manager
	pactl    *Pactl
	logger   *logging.Logger

	// lastEnum gates the periodic re-enumeration.
	lastEnum time.Time
}

// New creates the worker.
func New(deps Deps) (*Worker, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Recorder == nil {
		return nil, fmt.Errorf("recorder is required")
	}
	if deps.Settings == nil {
		return nil, fmt.Errorf("settings manager is required")
	}
	if deps.Tool == "" {
		return nil, fmt.Errorf("pactl tool is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &Worker{
		store:    deps.Store,
		recorder: deps.Recorder,
		settings: deps.Settings,
		pactl:    NewPactl(deps.Tool),
		logger:   deps.Logger.With("component", "audio"),
	}, nil
}

// Name implements worker.Worker.
func (w *Worker) Name() string {
	return "audio"
}

// WaitTimeout implements worker.Worker.
func (w *Worker) WaitTimeout() time.Duration {
	return waitTimeout
}

// Startup enumerates the sinks and applies the configured device and volume.
func (w *Worker) Startup(ctx context.Context) {
	w.recorder.Info("Audio service started")

	// Seed the status so readers see sane values even before the first
	// pactl call lands.
	w.store.SetAudio(state.AudioStatus{OutputDevice: "default", Volume: 80})

	w.enumerate(ctx)
	w.lastEnum = time.Now()

	audio := w.store.GetSettings().Audio
	if audio.OutputDevice != "default" {
		w.setDevice(ctx, audio.OutputDevice)
	}
	w.setVolume(ctx, audio.Volume)

	// Read the volume back so the status reflects what PulseAudio actually
	// applied, not just what was asked for.
	w.syncVolume(ctx)
}

// HandleCommand implements worker.Worker.
func (w *Worker) HandleCommand(ctx context.Context, cmd bus.Command) {
	switch cmd.Type {
	case bus.CmdAudioSetDevice:
		device := cmd.Device
		if device == "" {
			device = "default"
		}
		if w.setDevice(ctx, device) {
			w.persist(func(s *state.Settings) { s.Audio.OutputDevice = device })
		}

	case bus.CmdAudioSetVolume:
		if volume, ok := w.setVolume(ctx, cmd.Volume); ok {
			w.recorder.Action("Volume set to %d", volume)
			w.persist(func(s *state.Settings) { s.Audio.Volume = volume })
		}

	case bus.CmdAudioRefresh:
		w.enumerate(ctx)
		w.lastEnum = time.Now()

	default:
		w.logger.Debug("ignoring command", "type", string(cmd.Type))
	}
}

// Tick re-enumerates sinks on a fixed cadence and keeps the reported volume
// in sync with PulseAudio.
func (w *Worker) Tick(ctx context.Context) {
	if time.Since(w.lastEnum) > enumInterval {
		w.enumerate(ctx)
		w.syncVolume(ctx)
		w.lastEnum = time.Now()
	}
}

// Shutdown implements worker.Worker. Nothing to release: every pactl call is
// already bounded and synchronous.
func (w *Worker) Shutdown(context.Context) {}

// enumerate refreshes the available-device list in the store. The synthetic
// "default" entry always leads the list.
func (w *Worker) enumerate(ctx context.Context) {
	devices, res := w.pactl.Sinks(ctx)
	if !res.OK() {
		switch res.Outcome {
		case hostcmd.TimedOut:
			w.recorder.Error("pactl timeout enumerating devices")
		case hostcmd.ToolMissing:
			w.recorder.Error("pactl not found. Install pulseaudio-utils.")
		default:
			w.recorder.Error("pactl error: %s", failureDetail(res))
		}
		return
	}

	all := make([]state.AudioDevice, 0, len(devices)+1)
	all = append(all, state.AudioDevice{ID: "default", FriendlyName: "Default"})
	all = append(all, devices...)

	audio := w.store.GetAudio()
	audio.AvailableDevices = all
	w.store.SetAudio(audio)
}

// setDevice makes device the default sink and records the change. The
// synthetic "default" device needs no pactl call: it means "follow whatever
// PulseAudio already routes to".
func (w *Worker) setDevice(ctx context.Context, device string) bool {
	if device == "default" {
		w.recorder.Action("Audio device set to default")
		audio := w.store.GetAudio()
		audio.OutputDevice = "default"
		w.store.SetAudio(audio)
		return true
	}

	res := w.pactl.SetDefaultSink(ctx, device)
	if !res.OK() {
		switch res.Outcome {
		case hostcmd.TimedOut:
			w.recorder.Error("pactl timeout setting device")
		case hostcmd.ToolMissing:
			w.recorder.Error("pactl not found")
		default:
			w.recorder.Error("Failed to set audio device: %s", failureDetail(res))
		}
		return false
	}

	audio := w.store.GetAudio()
	audio.OutputDevice = device
	w.store.SetAudio(audio)
	w.recorder.Action("Audio device set to %s", device)
	return true
}

// setVolume applies volume (clamped to 0..100) to the default sink and
// returns the value actually requested.
func (w *Worker) setVolume(ctx context.Context, volume int) (int, bool) {
	volume = clampVolume(volume)

	res := w.pactl.SetVolume(ctx, volume)
	if !res.OK() {
		switch res.Outcome {
		case hostcmd.TimedOut:
			w.recorder.Error("pactl timeout setting volume")
		case hostcmd.ToolMissing:
			w.recorder.Error("pactl not found")
		default:
			w.recorder.Error("Failed to set volume: %s", failureDetail(res))
		}
		return volume, false
	}

	audio := w.store.GetAudio()
	audio.Volume = volume
	w.store.SetAudio(audio)
	return volume, true
}

// syncVolume replaces the reported volume with what PulseAudio actually has,
// catching rounding and out-of-band changes. Failures are silent: the last
// written value stands.
func (w *Worker) syncVolume(ctx context.Context) {
	v, ok := w.pactl.CurrentVolume(ctx)
	if !ok {
		return
	}
	audio := w.store.GetAudio()
	if audio.Volume == v {
		return
	}
	audio.Volume = v
	w.store.SetAudio(audio)
}

// persist records an applied change into the settings document. Persistence
// failure is journaled; the in-memory state keeps serving.
func (w *Worker) persist(mutate func(*state.Settings)) {
	if err := w.settings.Persist(mutate); err != nil {
		w.recorder.Error("Failed to persist audio settings: %v", err)
	}
}

// failureDetail picks the most useful line for a Failed outcome.
func failureDetail(res hostcmd.Result) string {
	if detail := hostcmd.FirstLine(res.Stderr); detail != "" {
		return detail
	}
	if res.Err != nil {
		return res.Err.Error()
	}
	return res.Outcome.String()
}

// clampVolume bounds v to the 0..100 percent range.
func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
