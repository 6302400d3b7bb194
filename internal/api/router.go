package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"kioskd/internal/panel"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)

		r.Get("/settings", s.handleGetSettings)
		r.Post("/settings", s.handleUpdateSettings)

		r.Get("/weather/status", s.handleWeatherStatus)
		r.Post("/weather/refresh", s.handleWeatherRefresh)

		r.Get("/themes", s.handleListThemes)
		r.Route("/theme", func(r chi.Router) {
			r.Get("/{name}", s.handleGetTheme)
			r.Post("/{name}", s.handleSaveTheme)
			r.Delete("/{name}", s.handleDeleteTheme)
			r.Post("/select/{name}", s.handleSelectTheme)
		})

		r.Route("/youtube", func(r chi.Router) {
			r.Post("/play", s.handleYouTubePlay)
			r.Post("/control", s.handleYouTubeControl)
			r.Get("/status", s.handleYouTubeStatus)
		})

		r.Route("/audio", func(r chi.Router) {
			r.Get("/devices", s.handleAudioDevices)
			r.Post("/device", s.handleAudioSetDevice)
			r.Post("/volume", s.handleAudioSetVolume)
		})

		r.Route("/bluetooth", func(r chi.Router) {
			r.Get("/status", s.handleBluetoothStatus)
			r.Get("/devices", s.handleBluetoothDevices)
			r.Post("/scan", s.handleBluetoothScan)
			r.Post("/connect", s.handleBluetoothConnect)
			r.Post("/disconnect", s.handleBluetoothDisconnect)
			r.Post("/pair", s.handleBluetoothPair)
			r.Post("/remove", s.handleBluetoothRemove)
		})

		r.Get("/logs", s.handleLogs)
		r.Post("/logs/clear", s.handleLogsClear)
	})

	// WebSocket event stream
	r.Get("/ws", s.handleWebSocket)

	// Embedded panel UI at the root (filesystem override for development)
	r.Handle("/*", panel.Handler(s.cfg.PanelDir))

	return r
}
