package api

import (
	"net/http"

	"kioskd/internal/bus"
	"kioskd/internal/mediaplayer"
)

// controlCommands maps the control action vocabulary to command types.
var controlCommands = map[string]bus.CommandType{
	"pause":       bus.CmdYouTubePause,
	"resume":      bus.CmdYouTubeResume,
	"stop":        bus.CmdYouTubeStop,
	"volume_up":   bus.CmdYouTubeVolumeUp,
	"volume_down": bus.CmdYouTubeVolumeDown,
}

// handleYouTubePlay starts playback of a YouTube URL. The URL is validated
// here so a typo is rejected with a 400 instead of a journal entry.
func (s *Server) handleYouTubePlay(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	videoID, ok := mediaplayer.ExtractVideoID(body.URL)
	if !ok {
		writeBadRequest(w, "not a recognised YouTube URL")
		return
	}

	cmd := bus.NewCommand(bus.CmdYouTubePlay)
	cmd.URL = body.URL
	cmd.VideoID = videoID
	s.acceptCommand(w, cmd)
}

// handleYouTubeControl drives the current playback session.
func (s *Server) handleYouTubeControl(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action string `json:"action"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	cmdType, ok := controlCommands[body.Action]
	if !ok {
		writeBadRequest(w, "unknown action: "+body.Action)
		return
	}

	s.acceptCommand(w, bus.NewCommand(cmdType))
}

// handleYouTubeStatus returns the current playback state.
func (s *Server) handleYouTubeStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.GetMedia())
}
