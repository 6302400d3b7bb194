package settings

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"kioskd/internal/bus"
	"kioskd/internal/infrastructure/config"
	"kioskd/internal/infrastructure/logging"
	"kioskd/internal/logbook"
	"kioskd/internal/state"
)

type managerFixture struct {
	manager *Manager
	store   *state.Store
	reload  *bus.Queue[bus.ReloadNotice]
	logQ    *bus.Queue[bus.LogEntry]
	path    string
	themes  string
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()

	dir := t.TempDir()
	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test")
	logQ := bus.NewQueue[bus.LogEntry]()
	recorder, err := logbook.NewRecorder(logQ, logger)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}

	store := state.New()
	reload := bus.NewQueue[bus.ReloadNotice]()
	path := filepath.Join(dir, "settings.json")
	themes := filepath.Join(dir, "themes")

	manager, err := NewManager(Deps{
		Store:        store,
		Reload:       reload,
		Recorder:     recorder,
		SettingsPath: path,
		ThemesDir:    themes,
		Logger:       logger,
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	return &managerFixture{
		manager: manager,
		store:   store,
		reload:  reload,
		logQ:    logQ,
		path:    path,
		themes:  themes,
	}
}

func (f *managerFixture) drainReloads() int {
	n := 0
	for {
		if _, ok := f.reload.TryReceive(); !ok {
			return n
		}
		n++
	}
}

func TestNewManager_Validation(t *testing.T) {
	f := newManagerFixture(t)
	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text"}, "test")
	recorder, _ := logbook.NewRecorder(f.logQ, logger)

	valid := Deps{
		Store:        f.store,
		Reload:       f.reload,
		Recorder:     recorder,
		SettingsPath: f.path,
		ThemesDir:    f.themes,
		Logger:       logger,
	}

	tests := []struct {
		name   string
		mutate func(*Deps)
	}{
		{"missing store", func(d *Deps) { d.Store = nil }},
		{"missing reload queue", func(d *Deps) { d.Reload = nil }},
		{"missing recorder", func(d *Deps) { d.Recorder = nil }},
		{"missing settings path", func(d *Deps) { d.SettingsPath = "" }},
		{"missing themes dir", func(d *Deps) { d.ThemesDir = "" }},
		{"missing logger", func(d *Deps) { d.Logger = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := valid
			tt.mutate(&deps)
			if _, err := NewManager(deps); err == nil {
				t.Error("NewManager() expected error, got nil")
			}
		})
	}
}

func TestManager_LoadMissingFileWritesDefaults(t *testing.T) {
	f := newManagerFixture(t)

	s, err := f.manager.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(s, Defaults()) {
		t.Error("Load() on missing file should return defaults")
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		t.Fatalf("expected defaults file to be created: %v", err)
	}
	var onDisk state.Settings
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("defaults file is not valid JSON: %v", err)
	}
	if !reflect.DeepEqual(onDisk, Defaults()) {
		t.Error("defaults file content does not match Defaults()")
	}
}

func TestManager_LoadPartialFileMergesOntoDefaults(t *testing.T) {
	f := newManagerFixture(t)

	partial := `{"weather": {"api_key": "k123"}, "theme": "ocean"}`
	if err := os.WriteFile(f.path, []byte(partial), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := f.manager.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Weather.APIKey != "k123" {
		t.Errorf("APIKey = %q, want k123", s.Weather.APIKey)
	}
	if s.Weather.Lat != 40.7128 {
		t.Errorf("Lat = %v, want default 40.7128", s.Weather.Lat)
	}
	if s.Theme != "ocean" {
		t.Errorf("Theme = %q, want ocean", s.Theme)
	}
	if s.Audio.Volume != 80 {
		t.Errorf("Volume = %d, want default 80", s.Audio.Volume)
	}
	if s.Dimming.DayStart != "07:00" {
		t.Errorf("DayStart = %q, want default 07:00", s.Dimming.DayStart)
	}
}

func TestManager_LoadMalformedFileFallsBackToDefaults(t *testing.T) {
	f := newManagerFixture(t)

	if err := os.WriteFile(f.path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := f.manager.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(s, Defaults()) {
		t.Error("malformed file should fall back to defaults")
	}
}

func TestManager_SaveLoadRoundTrip(t *testing.T) {
	f := newManagerFixture(t)

	s := Defaults()
	s.Weather.APIKey = "roundtrip"
	s.Audio.Volume = 42
	s.Theme = "ember"

	if err := f.manager.Save(s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := f.manager.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, s) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, s)
	}
}

func TestManager_BootstrapSeedsStoreAndThemes(t *testing.T) {
	f := newManagerFixture(t)

	s, err := f.manager.Bootstrap()
	if err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if !reflect.DeepEqual(f.store.GetSettings(), s) {
		t.Error("store settings do not match bootstrap result")
	}
	if got := f.store.GetTheme().Name; got != "Dark" {
		t.Errorf("store theme = %q, want Dark", got)
	}
	if n := f.drainReloads(); n != 0 {
		t.Errorf("bootstrap published %d reload notices, want 0", n)
	}

	want := []string{"dark", "ember", "light", "ocean"}
	if got := f.manager.ListThemes(); !reflect.DeepEqual(got, want) {
		t.Errorf("ListThemes() = %v, want %v", got, want)
	}
}

func TestManager_UpdateMergesPersistsAndPublishes(t *testing.T) {
	f := newManagerFixture(t)
	if _, err := f.manager.Bootstrap(); err != nil {
		t.Fatal(err)
	}

	patch := map[string]any{
		"weather": map[string]any{"api_key": "patched"},
	}
	s, err := f.manager.Update(patch)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if s.Weather.APIKey != "patched" {
		t.Errorf("APIKey = %q, want patched", s.Weather.APIKey)
	}
	if s.Weather.Units != "imperial" {
		t.Errorf("Units = %q, want imperial preserved", s.Weather.Units)
	}

	if got := f.store.GetSettings().Weather.APIKey; got != "patched" {
		t.Errorf("store APIKey = %q, want patched", got)
	}
	if n := f.drainReloads(); n != 1 {
		t.Errorf("reload notices = %d, want 1", n)
	}

	onDisk, err := f.manager.Load()
	if err != nil {
		t.Fatal(err)
	}
	if onDisk.Weather.APIKey != "patched" {
		t.Error("update was not persisted to disk")
	}
}

func TestManager_UpdateRejectsBadPatches(t *testing.T) {
	f := newManagerFixture(t)
	if _, err := f.manager.Bootstrap(); err != nil {
		t.Fatal(err)
	}

	if _, err := f.manager.Update(nil); !errors.Is(err, ErrEmptyPatch) {
		t.Errorf("Update(nil) error = %v, want ErrEmptyPatch", err)
	}

	before := f.store.GetSettings()
	_, err := f.manager.Update(map[string]any{
		"audio": map[string]any{"volume": "loud"},
	})
	if err == nil {
		t.Fatal("Update() expected type error, got nil")
	}
	if !reflect.DeepEqual(f.store.GetSettings(), before) {
		t.Error("failed update must leave store unchanged")
	}
	if n := f.drainReloads(); n != 0 {
		t.Errorf("failed update published %d reload notices, want 0", n)
	}
}

func TestManager_SetTheme(t *testing.T) {
	f := newManagerFixture(t)
	if _, err := f.manager.Bootstrap(); err != nil {
		t.Fatal(err)
	}

	if err := f.manager.SetTheme("ocean"); err != nil {
		t.Fatalf("SetTheme() error = %v", err)
	}
	if got := f.store.GetSettings().Theme; got != "ocean" {
		t.Errorf("settings theme = %q, want ocean", got)
	}
	if got := f.store.GetTheme().Name; got != "Ocean" {
		t.Errorf("active theme = %q, want Ocean", got)
	}
	if n := f.drainReloads(); n != 1 {
		t.Errorf("reload notices = %d, want 1", n)
	}

	if err := f.manager.SetTheme("../evil"); !errors.Is(err, ErrInvalidThemeName) {
		t.Errorf("SetTheme(../evil) error = %v, want ErrInvalidThemeName", err)
	}
}

func TestManager_LoadThemeFallsBackToDark(t *testing.T) {
	f := newManagerFixture(t)

	got := f.manager.LoadTheme("does-not-exist")
	if !reflect.DeepEqual(got, DefaultTheme()) {
		t.Error("missing theme should fall back to the built-in dark theme")
	}

	// Malformed file also falls back.
	if err := os.MkdirAll(f.themes, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(f.themes, "broken.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	got = f.manager.LoadTheme("broken")
	if !reflect.DeepEqual(got, DefaultTheme()) {
		t.Error("malformed theme should fall back to the built-in dark theme")
	}
}

func TestManager_SaveAndDeleteTheme(t *testing.T) {
	f := newManagerFixture(t)

	custom := DefaultTheme()
	custom.Name = "Custom"
	custom.Background = "#000000"

	if err := f.manager.SaveTheme("custom", custom); err != nil {
		t.Fatalf("SaveTheme() error = %v", err)
	}
	if got := f.manager.LoadTheme("custom"); !reflect.DeepEqual(got, custom) {
		t.Errorf("LoadTheme(custom) = %+v, want saved theme", got)
	}

	if err := f.manager.SaveTheme("bad/name", custom); !errors.Is(err, ErrInvalidThemeName) {
		t.Errorf("SaveTheme(bad/name) error = %v, want ErrInvalidThemeName", err)
	}

	if err := f.manager.DeleteTheme("custom"); err != nil {
		t.Fatalf("DeleteTheme() error = %v", err)
	}
	if err := f.manager.DeleteTheme("custom"); !errors.Is(err, ErrThemeNotFound) {
		t.Errorf("second DeleteTheme() error = %v, want ErrThemeNotFound", err)
	}
}

func TestManager_ListThemesEmptyDirectory(t *testing.T) {
	f := newManagerFixture(t)

	got := f.manager.ListThemes()
	if !reflect.DeepEqual(got, []string{"dark"}) {
		t.Errorf("ListThemes() on missing dir = %v, want [dark]", got)
	}
}
