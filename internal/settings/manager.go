package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"kioskd/internal/bus"
	"kioskd/internal/infrastructure/logging"
	"kioskd/internal/logbook"
	"kioskd/internal/state"
)

// Deps holds the dependencies required by the settings manager.
type Deps struct {
	// Store receives applied settings and themes. Required.
	Store *state.Store

	// Reload is the queue notified after every applied change. Required.
	Reload *bus.Queue[bus.ReloadNotice]

	// Recorder publishes user-visible entries to the logbook. Required.
	Recorder *logbook.Recorder

	// SettingsPath is the JSON settings file location. Required.
	SettingsPath string

	// ThemesDir holds one JSON file per theme. Required.
	ThemesDir string

	// Logger is the operational logger. Required.
	Logger *logging.Logger
}

// Manager owns settings and theme persistence. All mutations flow through
// it: load-with-merge on startup and reload, atomic saves, and applying the
// result to the shared Store with a ReloadNotice so workers re-read their
// sections.
//
// Thread Safety: all methods are safe for concurrent use. File writes are
// serialised by an internal mutex.
type Manager struct {
	store     *state.Store
	reload    *bus.Queue[bus.ReloadNotice]
	recorder  *logbook.Recorder
	path      string
	themesDir string
	logger    *logging.Logger

	mu sync.Mutex

	// lastSave is when Save last wrote the file. The watcher reads it to
	// tell filesystem echoes of our own writes from external edits.
	lastSave time.Time
}

// NewManager creates a Manager from deps.
func NewManager(deps Deps) (*Manager, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Reload == nil {
		return nil, fmt.Errorf("reload queue is required")
	}
	if deps.Recorder == nil {
		return nil, fmt.Errorf("recorder is required")
	}
	if deps.SettingsPath == "" {
		return nil, fmt.Errorf("settings path is required")
	}
	if deps.ThemesDir == "" {
		return nil, fmt.Errorf("themes directory is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Manager{
		store:     deps.Store,
		reload:    deps.Reload,
		recorder:  deps.Recorder,
		path:      deps.SettingsPath,
		themesDir: deps.ThemesDir,
		logger:    deps.Logger.With("component", "settings"),
	}, nil
}

// Path returns the settings file location.
func (m *Manager) Path() string {
	return m.path
}

// Bootstrap loads settings and the active theme into the Store without
// publishing a reload. Called once at startup before any worker runs. It
// also writes the built-in themes to the themes directory if absent.
func (m *Manager) Bootstrap() (state.Settings, error) {
	if err := m.ensureShippedThemes(); err != nil {
		m.logger.Error("failed to write built-in themes", "error", err)
	}

	s, err := m.Load()
	if err != nil {
		return state.Settings{}, err
	}
	m.store.SetSettings(s)
	m.store.SetTheme(m.LoadTheme(s.Theme))
	m.logger.Info("settings loaded", "path", m.path, "theme", s.Theme)
	return s, nil
}

// Load reads the settings file and deep-merges it onto the defaults, so a
// partial file never leaves a field unset. A missing file is written out
// with the defaults; an unreadable or malformed file falls back to defaults
// with an error logged. The Store is not touched.
func (m *Manager) Load() (state.Settings, error) {
	defaults, err := settingsToMap(Defaults())
	if err != nil {
		return state.Settings{}, err
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			s := Defaults()
			if saveErr := m.Save(s); saveErr != nil {
				m.logger.Error("failed to write default settings file", "error", saveErr)
			}
			return s, nil
		}
		m.logger.Error("failed to read settings file, using defaults", "error", err)
		return Defaults(), nil
	}

	var loaded map[string]any
	if err := json.Unmarshal(data, &loaded); err != nil {
		m.logger.Error("settings file is not valid JSON, using defaults", "error", err)
		return Defaults(), nil
	}

	s, err := settingsFromMap(Merge(defaults, loaded))
	if err != nil {
		m.logger.Error("settings file has invalid values, using defaults", "error", err)
		return Defaults(), nil
	}
	return s, nil
}

// Save writes settings to disk atomically via a temp file rename.
func (m *Manager) Save(s state.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := writeFileAtomic(m.path, append(data, '\n')); err != nil {
		return err
	}
	m.lastSave = time.Now()
	return nil
}

// lastSaveTime reports when Save last wrote the settings file.
func (m *Manager) lastSaveTime() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSave
}

// Apply pushes settings into the Store, replaces the active theme to match
// and publishes a ReloadNotice so workers re-read their sections.
func (m *Manager) Apply(s state.Settings) {
	m.store.SetSettings(s)
	m.store.SetTheme(m.LoadTheme(s.Theme))
	m.reload.Send(bus.ReloadNotice{})
}

// Update deep-merges a patch onto the current settings, persists and
// applies the result. Unknown keys are dropped; mismatched value types
// reject the whole patch.
func (m *Manager) Update(patch map[string]any) (state.Settings, error) {
	if len(patch) == 0 {
		return state.Settings{}, ErrEmptyPatch
	}

	current, err := settingsToMap(m.store.GetSettings())
	if err != nil {
		return state.Settings{}, err
	}

	s, err := settingsFromMap(Merge(current, patch))
	if err != nil {
		return state.Settings{}, err
	}
	if err := m.Save(s); err != nil {
		return state.Settings{}, err
	}
	m.Apply(s)
	m.recorder.Action("Settings updated")
	return s, nil
}

// Persist applies mutate to the current settings, then stores and saves the
// result without publishing a reload. Workers use it to record hardware
// changes they have already applied (output device, volume), where waking
// every consumer would be noise.
func (m *Manager) Persist(mutate func(*state.Settings)) error {
	s := m.store.GetSettings()
	mutate(&s)
	if err := m.Save(s); err != nil {
		return err
	}
	m.store.SetSettings(s)
	return nil
}

// SetTheme switches the active theme, persisting the choice.
func (m *Manager) SetTheme(name string) error {
	if !themeNameRe.MatchString(name) {
		return ErrInvalidThemeName
	}

	s := m.store.GetSettings()
	s.Theme = name
	if err := m.Save(s); err != nil {
		return err
	}
	m.Apply(s)
	m.recorder.Action("Theme changed to %q", name)
	return nil
}

// Reload re-reads the settings file and applies the result. Called by the
// file watcher after a debounced change.
func (m *Manager) Reload() {
	s, err := m.Load()
	if err != nil {
		m.logger.Error("settings reload failed", "error", err)
		return
	}
	m.Apply(s)
	m.recorder.Action("Configuration reloaded")
}

// writeFileAtomic writes data to path through a temp file in the same
// directory so readers never observe a half-written file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}
