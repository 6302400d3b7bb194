package api

import (
	"encoding/json"
	"net/http"

	"kioskd/internal/bus"
)

// decodeBody decodes a JSON request body into v. An empty body is allowed
// and leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}

// acceptCommand validates cmd, journals the request and enqueues it.
// The response tells the caller the command was accepted, not executed;
// the worker supervisor is the single execution path.
func (s *Server) acceptCommand(w http.ResponseWriter, cmd bus.Command) {
	if err := cmd.Validate(); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	s.recorder.API("API command received: %s", cmd.Type)
	s.commands.Send(cmd)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted": true,
		"id":       cmd.ID,
	})
}
