package mediaplayer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kioskd/internal/bus"
	"kioskd/internal/infrastructure/config"
	"kioskd/internal/infrastructure/logging"
	"kioskd/internal/logbook"
	"kioskd/internal/state"
)

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test")
}

// writeFakeMpv writes a stand-in player that records its invocation and
// then runs the given body, so worker tests need no real mpv.
func writeFakeMpv(t *testing.T, body string) (dir, tool string) {
	t.Helper()

	dir = t.TempDir()
	tool = filepath.Join(dir, "mpv")
	script := fmt.Sprintf("#!/bin/sh\necho \"$*\" >> %q\n%s\n", filepath.Join(dir, "calls.log"), body)
	if err := os.WriteFile(tool, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return dir, tool
}

type mediaFixture struct {
	t       *testing.T
	worker  *Worker
	store   *state.Store
	logQ    *bus.Queue[bus.LogEntry]
	toolDir string
}

func newMediaFixture(t *testing.T, playerBody string) *mediaFixture {
	t.Helper()

	toolDir, tool := writeFakeMpv(t, playerBody)

	logger := testLogger()
	logQ := bus.NewQueue[bus.LogEntry]()
	recorder, err := logbook.NewRecorder(logQ, logger)
	if err != nil {
		t.Fatal(err)
	}

	store := state.New()
	w, err := New(Deps{
		Store:    store,
		Recorder: recorder,
		Tool:     tool,
		Socket:   filepath.Join(t.TempDir(), "mpv.sock"),
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// The fake player never creates a socket; keep the grace periods short.
	w.socketWait = 300 * time.Millisecond
	w.stopWait = 100 * time.Millisecond

	return &mediaFixture{t: t, worker: w, store: store, logQ: logQ, toolDir: toolDir}
}

func (f *mediaFixture) calls() []string {
	raw, err := os.ReadFile(filepath.Join(f.toolDir, "calls.log"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		f.t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(raw)), "\n")
}

func (f *mediaFixture) drainLog() []bus.LogEntry {
	var out []bus.LogEntry
	for {
		e, ok := f.logQ.TryReceive()
		if !ok {
			return out
		}
		out = append(out, e)
	}
}

func messages(entries []bus.LogEntry, cat bus.Category) []string {
	var out []string
	for _, e := range entries {
		if e.Category == cat {
			out = append(out, e.Message)
		}
	}
	return out
}

func contains(msgs []string, want string) bool {
	for _, m := range msgs {
		if m == want {
			return true
		}
	}
	return false
}

func playCommand(url string) bus.Command {
	cmd := bus.NewCommand(bus.CmdYouTubePlay)
	cmd.URL = url
	return cmd
}

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func TestWorkerNewValidation(t *testing.T) {
	logger := testLogger()
	recorder, err := logbook.NewRecorder(bus.NewQueue[bus.LogEntry](), logger)
	if err != nil {
		t.Fatal(err)
	}

	valid := func() Deps {
		return Deps{Store: state.New(), Recorder: recorder, Tool: "mpv", Socket: "/tmp/x.sock", Logger: logger}
	}

	if _, err := New(valid()); err != nil {
		t.Fatalf("valid deps rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Deps)
	}{
		{"nil store", func(d *Deps) { d.Store = nil }},
		{"nil recorder", func(d *Deps) { d.Recorder = nil }},
		{"empty tool", func(d *Deps) { d.Tool = "" }},
		{"empty socket", func(d *Deps) { d.Socket = "" }},
		{"nil logger", func(d *Deps) { d.Logger = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := valid()
			tt.mutate(&deps)
			if _, err := New(deps); err == nil {
				t.Error("New succeeded, want error")
			}
		})
	}
}

func TestPlayRejectsInvalidURL(t *testing.T) {
	f := newMediaFixture(t, "sleep 60")

	f.worker.HandleCommand(context.Background(), playCommand("https://example.com/video"))

	if f.worker.proc != nil {
		t.Error("process launched for invalid URL")
	}
	if calls := f.calls(); len(calls) != 0 {
		t.Errorf("player invoked for invalid URL: %v", calls)
	}
	errs := messages(f.drainLog(), bus.CategoryError)
	if !contains(errs, "Invalid YouTube URL: https://example.com/video") {
		t.Errorf("errors = %v, want invalid-URL entry", errs)
	}
}

func TestPlayLaunchesWithExpectedFlags(t *testing.T) {
	f := newMediaFixture(t, "sleep 60")
	defer f.worker.Shutdown(context.Background())

	s := f.store.GetSettings()
	s.YouTube.MaxResolution = 720
	s.Audio.OutputDevice = "bluez_sink.AA.a2dp_sink"
	f.store.SetSettings(s)

	f.worker.HandleCommand(context.Background(), playCommand(testURL))

	calls := f.calls()
	if len(calls) != 1 {
		t.Fatalf("player invoked %d times, want 1", len(calls))
	}
	for _, want := range []string{
		"--fullscreen",
		"--ytdl-format=bestvideo[height<=720]+bestaudio/best[height<=720]/best",
		"--input-ipc-server=" + f.worker.ipc.path,
		"--no-terminal",
		"--audio-device=pulse/bluez_sink.AA.a2dp_sink",
		testURL,
	} {
		if !strings.Contains(calls[0], want) {
			t.Errorf("player args %q missing %q", calls[0], want)
		}
	}

	media := f.store.GetMedia()
	if !media.Playing || media.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("media = %#v, want playing dQw4w9WgXcQ", media)
	}
	actions := messages(f.drainLog(), bus.CategoryAction)
	if !contains(actions, "Starting YouTube playback: dQw4w9WgXcQ") {
		t.Errorf("actions = %v, want start entry", actions)
	}
}

func TestPlayToolMissing(t *testing.T) {
	f := newMediaFixture(t, "")
	f.worker.tool = filepath.Join(t.TempDir(), "missing-mpv")

	f.worker.HandleCommand(context.Background(), playCommand(testURL))

	if f.worker.proc != nil {
		t.Error("proc set after failed launch")
	}
	errs := messages(f.drainLog(), bus.CategoryError)
	if !contains(errs, "mpv not found. Install with: sudo apt install mpv") {
		t.Errorf("errors = %v, want tool-missing entry", errs)
	}
}

func TestPlayImmediateExit(t *testing.T) {
	f := newMediaFixture(t, "exit 2")

	f.worker.HandleCommand(context.Background(), playCommand(testURL))

	if f.worker.proc != nil {
		t.Error("proc set after immediate exit")
	}
	if media := f.store.GetMedia(); media.Playing {
		t.Errorf("media = %#v, want reset", media)
	}
	errs := messages(f.drainLog(), bus.CategoryError)
	if !contains(errs, "mpv exited immediately") {
		t.Errorf("errors = %v, want immediate-exit entry", errs)
	}
}

func TestTickDetectsPlayerExit(t *testing.T) {
	// Outlives the socket grace, then exits on its own.
	f := newMediaFixture(t, "sleep 0.5")
	ctx := context.Background()

	f.worker.HandleCommand(ctx, playCommand(testURL))
	if f.worker.proc == nil {
		t.Fatal("player did not launch")
	}
	f.drainLog()

	deadline := time.Now().Add(2 * time.Second)
	for f.worker.proc.Running() {
		if time.Now().After(deadline) {
			t.Fatal("fake player never exited")
		}
		time.Sleep(20 * time.Millisecond)
	}

	f.worker.Tick(ctx)

	if f.worker.proc != nil {
		t.Error("proc still set after exit")
	}
	if media := f.store.GetMedia(); media.Playing || media.VideoID != "" {
		t.Errorf("media = %#v, want zero value", media)
	}
	actions := messages(f.drainLog(), bus.CategoryAction)
	if !contains(actions, "YouTube playback ended") {
		t.Errorf("actions = %v, want ended entry", actions)
	}
}

func TestStopKillsStubbornPlayer(t *testing.T) {
	// No IPC socket, so quit cannot be delivered and the group gets killed.
	f := newMediaFixture(t, "trap '' TERM\nsleep 60")
	ctx := context.Background()

	f.worker.HandleCommand(ctx, playCommand(testURL))
	if f.worker.proc == nil {
		t.Fatal("player did not launch")
	}
	f.drainLog()

	f.worker.HandleCommand(ctx, bus.NewCommand(bus.CmdYouTubeStop))

	if f.worker.proc != nil {
		t.Error("proc still set after stop")
	}
	if media := f.store.GetMedia(); media.Playing {
		t.Errorf("media = %#v, want reset", media)
	}
	actions := messages(f.drainLog(), bus.CategoryAction)
	if !contains(actions, "YouTube playback ended") {
		t.Errorf("actions = %v, want ended entry", actions)
	}
}

func TestStopWithoutSessionIsNoop(t *testing.T) {
	f := newMediaFixture(t, "sleep 60")

	f.worker.HandleCommand(context.Background(), bus.NewCommand(bus.CmdYouTubeStop))

	entries := f.drainLog()
	if got := messages(entries, bus.CategoryAction); len(got) != 0 {
		t.Errorf("actions = %v, want none", got)
	}
}

func TestPauseWithoutSessionIsNoop(t *testing.T) {
	f := newMediaFixture(t, "sleep 60")

	f.worker.HandleCommand(context.Background(), bus.NewCommand(bus.CmdYouTubePause))

	if media := f.store.GetMedia(); media.Paused {
		t.Error("pause without session mutated state")
	}
}

func TestPlayReplacesRunningSession(t *testing.T) {
	f := newMediaFixture(t, "sleep 60")
	ctx := context.Background()
	defer f.worker.Shutdown(ctx)

	f.worker.HandleCommand(ctx, playCommand(testURL))
	first := f.worker.proc
	if first == nil {
		t.Fatal("first session did not launch")
	}

	f.worker.HandleCommand(ctx, playCommand("https://youtu.be/abcdefghijk"))

	if first.Running() {
		t.Error("first player still running after replacement")
	}
	if f.worker.proc == nil || f.worker.proc == first {
		t.Error("second session did not launch")
	}
	if got := f.store.GetMedia().VideoID; got != "abcdefghijk" {
		t.Errorf("VideoID = %q, want abcdefghijk", got)
	}
	if n := len(f.calls()); n != 2 {
		t.Errorf("player invoked %d times, want 2", n)
	}
}

func TestShutdownStopsPlayer(t *testing.T) {
	f := newMediaFixture(t, "sleep 60")
	ctx := context.Background()

	f.worker.HandleCommand(ctx, playCommand(testURL))
	proc := f.worker.proc
	if proc == nil {
		t.Fatal("player did not launch")
	}

	f.worker.Shutdown(ctx)

	if proc.Running() {
		t.Error("player still running after shutdown")
	}
	if f.worker.proc != nil {
		t.Error("proc still set after shutdown")
	}
}
