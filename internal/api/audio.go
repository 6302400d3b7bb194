package api

import (
	"net/http"

	"kioskd/internal/bus"
)

// handleAudioDevices returns the enumerated output sinks and the active one.
func (s *Server) handleAudioDevices(w http.ResponseWriter, _ *http.Request) {
	audio := s.store.GetAudio()
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": audio.AvailableDevices,
		"current": audio.OutputDevice,
	})
}

// handleAudioSetDevice switches the output sink.
func (s *Server) handleAudioSetDevice(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Device string `json:"device"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	cmd := bus.NewCommand(bus.CmdAudioSetDevice)
	cmd.Device = body.Device
	s.acceptCommand(w, cmd)
}

// handleAudioSetVolume sets the sink volume.
func (s *Server) handleAudioSetVolume(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Volume int `json:"volume"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	cmd := bus.NewCommand(bus.CmdAudioSetVolume)
	cmd.Volume = body.Volume
	s.acceptCommand(w, cmd)
}
