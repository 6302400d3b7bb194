package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"kioskd/internal/state"
)

// Theme names double as file names, so only a conservative character set is
// accepted.
var themeNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func (m *Manager) themePath(name string) string {
	return filepath.Join(m.themesDir, name+".json")
}

// LoadTheme returns the named theme. A missing or unreadable file falls
// back to the built-in dark theme, so a dangling theme reference in the
// settings never breaks rendering.
func (m *Manager) LoadTheme(name string) state.Theme {
	if !themeNameRe.MatchString(name) {
		return DefaultTheme()
	}

	data, err := os.ReadFile(m.themePath(name))
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Error("failed to read theme file", "theme", name, "error", err)
		}
		return DefaultTheme()
	}

	var t state.Theme
	if err := json.Unmarshal(data, &t); err != nil {
		m.logger.Error("theme file is not valid JSON", "theme", name, "error", err)
		return DefaultTheme()
	}
	return t
}

// SaveTheme persists a theme under the given name.
func (m *Manager) SaveTheme(name string, t state.Theme) error {
	if !themeNameRe.MatchString(name) {
		return ErrInvalidThemeName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFileAtomic(m.themePath(name), append(data, '\n')); err != nil {
		return err
	}
	m.recorder.Action("Theme %q saved", name)
	return nil
}

// DeleteTheme removes a theme file. The active theme may be deleted; the
// next load of it falls back to the built-in dark theme.
func (m *Manager) DeleteTheme(name string) error {
	if !themeNameRe.MatchString(name) {
		return ErrInvalidThemeName
	}

	err := os.Remove(m.themePath(name))
	if os.IsNotExist(err) {
		return ErrThemeNotFound
	}
	if err != nil {
		return err
	}
	m.recorder.Action("Theme %q deleted", name)
	return nil
}

// ListThemes returns the sorted names of every theme on disk. An empty or
// missing directory yields just "dark" so the panel always has a choice.
func (m *Manager) ListThemes() []string {
	entries, err := os.ReadDir(m.themesDir)
	if err != nil {
		return []string{"dark"}
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	if len(names) == 0 {
		return []string{"dark"}
	}
	sort.Strings(names)
	return names
}

// ensureShippedThemes writes the built-in themes to the themes directory,
// skipping any file already present so user edits survive restarts.
func (m *Manager) ensureShippedThemes() error {
	if err := os.MkdirAll(m.themesDir, 0o755); err != nil {
		return err
	}
	for name, theme := range builtinThemes() {
		path := m.themePath(name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		data, err := json.MarshalIndent(theme, "", "  ")
		if err != nil {
			return err
		}
		if err := writeFileAtomic(path, append(data, '\n')); err != nil {
			return err
		}
	}
	return nil
}
