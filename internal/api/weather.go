package api

import (
	"net/http"

	"kioskd/internal/bus"
)

// handleWeatherStatus returns the cached weather snapshot.
func (s *Server) handleWeatherStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.GetWeather())
}

// handleWeatherRefresh enqueues an out-of-cycle fetch.
func (s *Server) handleWeatherRefresh(w http.ResponseWriter, _ *http.Request) {
	s.acceptCommand(w, bus.NewCommand(bus.CmdWeatherRefresh))
}
