package mediaplayer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"kioskd/internal/bus"
	"kioskd/internal/infrastructure/logging"
	"kioskd/internal/logbook"
	"kioskd/internal/state"
)

const (
	// waitTimeout is short: while a video plays, every loop iteration also
	// polls position and liveness.
	waitTimeout = 500 * time.Millisecond

	// socketGrace is how long to wait for the player to create its IPC
	// socket after launch.
	socketGrace = 2 * time.Second

	// quitGrace is how long a quit request gets before the process group
	// is killed.
	quitGrace = 2 * time.Second

	// volumeStep is the size of one volume nudge.
	volumeStep = 5

	// defaultMaxResolution caps the stream height when settings carry no
	// value.
	defaultMaxResolution = 480
)

// Deps carries the collaborators the worker needs. All are required.
type Deps struct {
	// Store holds the playback status and the live settings.
	Store *state.Store

	// Recorder is the kiosk event journal.
	Recorder *logbook.Recorder

	// Tool is the mpv binary, a bare name or an absolute path.
	Tool string

	// Socket is the IPC socket path the player is told to create.
	Socket string

	// Logger is the operational logger.
	Logger *logging.Logger
}

// Worker owns the playback session: at most one player process, controlled
// over IPC, with its status mirrored into the store every loop.
//
// All methods run on the single runner goroutine; no locking is needed.
type Worker struct {
	store    *state.Store
	recorder *logbook.Recorder
	tool     string
	ipc      *IPC
	logger   *logging.Logger

	proc *Process

	// socketWait and stopWait are the grace periods above, swappable for
	// tests.
	socketWait time.Duration
	stopWait   time.Duration
}

// New creates the worker.
func New(deps Deps) (*Worker, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Recorder == nil {
		return nil, fmt.Errorf("recorder is required")
	}
	if deps.Tool == "" {
		return nil, fmt.Errorf("mpv tool is required")
	}
	if deps.Socket == "" {
		return nil, fmt.Errorf("ipc socket path is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &Worker{
		store:      deps.Store,
		recorder:   deps.Recorder,
		tool:       deps.Tool,
		ipc:        NewIPC(deps.Socket),
		logger:     deps.Logger.With("component", "youtube"),
		socketWait: socketGrace,
		stopWait:   quitGrace,
	}, nil
}

// Name implements worker.Worker.
func (w *Worker) Name() string {
	return "youtube"
}

// WaitTimeout implements worker.Worker.
func (w *Worker) WaitTimeout() time.Duration {
	return waitTimeout
}

// Startup clears any stale socket from a previous run.
func (w *Worker) Startup(context.Context) {
	w.recorder.Info("YouTube service started")
	w.removeSocket()
}

// HandleCommand implements worker.Worker.
func (w *Worker) HandleCommand(_ context.Context, cmd bus.Command) {
	switch cmd.Type {
	case bus.CmdYouTubePlay:
		w.play(cmd.URL)

	case bus.CmdYouTubePause:
		w.setPause(true)

	case bus.CmdYouTubeResume:
		w.setPause(false)

	case bus.CmdYouTubeStop:
		if w.proc != nil {
			w.stopPlayer()
			w.playbackEnded()
		}

	case bus.CmdYouTubeVolumeUp:
		w.nudgeVolume(volumeStep)

	case bus.CmdYouTubeVolumeDown:
		w.nudgeVolume(-volumeStep)

	default:
		w.logger.Debug("ignoring command", "type", string(cmd.Type))
	}
}

// Tick watches the player. An exit on its own becomes a playback-ended
// event; otherwise the live position is mirrored into the store.
func (w *Worker) Tick(context.Context) {
	if w.proc == nil {
		return
	}
	if !w.proc.Running() {
		w.proc = nil
		w.playbackEnded()
		return
	}
	w.pollStatus()
}

// Shutdown stops any running player, forcing if it will not quit.
func (w *Worker) Shutdown(context.Context) {
	if w.proc != nil {
		w.stopPlayer()
		w.proc = nil
	}
	w.removeSocket()
}

// play validates the URL, tears down any prior session, and launches the
// player.
func (w *Worker) play(url string) {
	videoID, ok := ExtractVideoID(url)
	if !ok {
		w.recorder.Error("Invalid YouTube URL: %s", url)
		return
	}

	if w.proc != nil {
		w.stopPlayer()
		w.playbackEnded()
	}
	w.removeSocket()

	settings := w.store.GetSettings()
	w.recorder.Action("Starting YouTube playback: %s", videoID)

	proc, err := StartProcess(w.logger, w.tool, w.playerArgs(settings, url), []string{"DISPLAY=:0"})
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || os.IsNotExist(err) {
			w.recorder.Error("mpv not found. Install with: sudo apt install mpv")
		} else {
			w.recorder.Error("Failed to start mpv: %v", err)
		}
		return
	}
	w.proc = proc
	w.store.SetMedia(state.MediaStatus{Playing: true, VideoID: videoID})

	// Give the player a moment to come up and create its socket. An exit
	// in this window means the stream could not start at all.
	deadline := time.Now().Add(w.socketWait)
	for time.Now().Before(deadline) {
		if !w.proc.Running() {
			w.recorder.Error("mpv exited immediately")
			w.proc = nil
			w.store.SetMedia(state.MediaStatus{})
			return
		}
		if w.ipc.Available() {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if title := w.ipc.stringProperty("media-title"); title != "" {
		media := w.store.GetMedia()
		media.Title = title
		w.store.SetMedia(media)
		w.recorder.Info("Playing: %s", title)
	}
}

// playerArgs builds the mpv command line for one playback session.
func (w *Worker) playerArgs(s state.Settings, url string) []string {
	maxRes := s.YouTube.MaxResolution
	if maxRes <= 0 {
		maxRes = defaultMaxResolution
	}
	format := fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]/best", maxRes, maxRes)

	args := []string{
		"--fullscreen",
		"--osc=yes",
		"--script-opts=osc-layout=bottombar,osc-scalewindowed=2,osc-scalefullscreen=2",
		"--ytdl-format=" + format,
		"--input-ipc-server=" + w.ipc.path,
		"--no-terminal",
	}
	if dev := s.Audio.OutputDevice; dev != "" && dev != "default" {
		args = append(args, "--audio-device=pulse/"+dev)
	}
	if v := s.YouTube.DefaultVolume; v > 0 {
		args = append(args, fmt.Sprintf("--volume=%d", v))
	}
	return append(args, url)
}

// stopPlayer quits the player gracefully, killing the process group when it
// does not go.
func (w *Worker) stopPlayer() {
	if err := w.ipc.Quit(); err != nil {
		w.logger.Debug("quit request failed", "error", err)
	}
	if !w.proc.WaitExit(w.stopWait) {
		w.logger.Warn("player ignored quit, killing process group")
		w.proc.Kill()
	}
	w.proc = nil
}

// playbackEnded resets the session state after any kind of stop.
func (w *Worker) playbackEnded() {
	w.removeSocket()
	w.store.SetMedia(state.MediaStatus{})
	w.recorder.Action("YouTube playback ended")
}

// pollStatus mirrors the live playback position into the store. IPC
// failures leave the previous values standing.
func (w *Worker) pollStatus() {
	if !w.ipc.Available() {
		return
	}

	media := w.store.GetMedia()
	media.Position = w.ipc.floatProperty("time-pos")
	media.Duration = w.ipc.floatProperty("duration")
	media.Paused = w.ipc.boolProperty("pause")
	if title := w.ipc.stringProperty("media-title"); title != "" {
		media.Title = title
	}
	w.store.SetMedia(media)
}

// setPause flips the pause state of a running session; a no-op without one.
func (w *Worker) setPause(paused bool) {
	if w.proc == nil {
		return
	}
	if err := w.ipc.SetPause(paused); err != nil {
		w.logger.Debug("pause request failed", "error", err)
		return
	}
	media := w.store.GetMedia()
	media.Paused = paused
	w.store.SetMedia(media)
}

// nudgeVolume adjusts the player volume; a no-op without a session.
func (w *Worker) nudgeVolume(delta int) {
	if w.proc == nil {
		return
	}
	if err := w.ipc.AddVolume(delta); err != nil {
		w.logger.Debug("volume request failed", "error", err)
	}
}

// removeSocket clears a leftover IPC socket so a fresh player can bind it.
func (w *Worker) removeSocket() {
	if err := os.Remove(w.ipc.path); err != nil && !os.IsNotExist(err) {
		w.logger.Debug("failed to remove player socket", "error", err)
	}
}
