package api

import (
	"errors"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"kioskd/internal/bus"
	"kioskd/internal/settings"
	"kioskd/internal/state"
)

// handleGetSettings returns the live settings document.
func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.GetSettings())
}

// handleUpdateSettings deep-merges a JSON patch onto the current settings,
// persists and applies the result. The settings watcher's debounce swallows
// the resulting file-change echo.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := decodeBody(r, &patch); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	updated, err := s.settings.Update(patch)
	if err != nil {
		if errors.Is(err, settings.ErrEmptyPatch) {
			writeBadRequest(w, err.Error())
			return
		}
		writeBadRequest(w, "settings patch rejected: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// handleListThemes returns every theme on disk and which one is active.
func (s *Server) handleListThemes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"themes": s.settings.ListThemes(),
		"active": s.store.GetSettings().Theme,
	})
}

// handleGetTheme returns a named theme. Unknown names return 404 rather
// than the silent dark fallback the renderer gets; the panel's theme editor
// needs to tell the difference.
func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !slices.Contains(s.settings.ListThemes(), name) {
		writeNotFound(w, "theme not found: "+name)
		return
	}
	writeJSON(w, http.StatusOK, s.settings.LoadTheme(name))
}

// handleSaveTheme creates or replaces a named theme.
func (s *Server) handleSaveTheme(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var t state.Theme
	if err := decodeBody(r, &t); err != nil {
		writeBadRequest(w, "invalid theme body: "+err.Error())
		return
	}
	t.Name = name

	if err := s.settings.SaveTheme(name, t); err != nil {
		if errors.Is(err, settings.ErrInvalidThemeName) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to save theme: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"saved": name})
}

// handleDeleteTheme removes a theme file.
func (s *Server) handleDeleteTheme(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := s.settings.DeleteTheme(name); err != nil {
		switch {
		case errors.Is(err, settings.ErrThemeNotFound):
			writeNotFound(w, "theme not found: "+name)
		case errors.Is(err, settings.ErrInvalidThemeName):
			writeBadRequest(w, err.Error())
		default:
			writeInternalError(w, "failed to delete theme: "+err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": name})
}

// handleSelectTheme enqueues a theme change command.
func (s *Server) handleSelectTheme(w http.ResponseWriter, r *http.Request) {
	cmd := bus.NewCommand(bus.CmdThemeChange)
	cmd.Theme = chi.URLParam(r, "name")
	s.acceptCommand(w, cmd)
}
