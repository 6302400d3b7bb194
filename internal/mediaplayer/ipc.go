package mediaplayer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"
)

// ipcTimeout bounds one request/response round trip on the IPC socket.
const ipcTimeout = 2 * time.Second

// IPC talks mpv's JSON IPC protocol over a unix socket: one JSON object per
// line, commands as {"command": [...]}, responses carrying "error" and
// optionally "data". A fresh connection per request keeps the client
// stateless; the player is local, so the dial cost is noise.
type IPC struct {
	path string
}

// NewIPC creates a client for the socket at path.
func NewIPC(path string) *IPC {
	return &IPC{path: path}
}

// Available reports whether the socket exists yet. mpv creates it shortly
// after startup.
func (c *IPC) Available() bool {
	_, err := os.Stat(c.path)
	return err == nil
}

// response is one line from the player. Event lines carry "event"; command
// replies carry "error" (the string "success" on success).
type response struct {
	Event string `json:"event"`
	Error string `json:"error"`
	Data  any    `json:"data"`
}

// send issues one command and returns the matching reply, skipping any
// event lines the player interleaves.
func (c *IPC) send(command ...any) (response, error) {
	conn, err := net.DialTimeout("unix", c.path, ipcTimeout)
	if err != nil {
		return response{}, fmt.Errorf("dialing player socket: %w", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(ipcTimeout))

	msg, err := json.Marshal(map[string]any{"command": command})
	if err != nil {
		return response{}, err
	}
	if _, err := conn.Write(append(msg, '\n')); err != nil {
		return response{}, fmt.Errorf("writing player command: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var resp response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			continue
		}
		if resp.Event != "" {
			continue
		}
		if resp.Error != "" && resp.Error != "success" {
			return resp, fmt.Errorf("player: %s", resp.Error)
		}
		return resp, nil
	}
	if err := scanner.Err(); err != nil {
		return response{}, fmt.Errorf("reading player reply: %w", err)
	}
	return response{}, fmt.Errorf("player closed the socket")
}

// GetProperty fetches one property value; ok is false when the player is
// unreachable or has no value for it.
func (c *IPC) GetProperty(name string) (any, bool) {
	resp, err := c.send("get_property", name)
	if err != nil || resp.Data == nil {
		return nil, false
	}
	return resp.Data, true
}

// SetPause pauses or resumes playback.
func (c *IPC) SetPause(paused bool) error {
	_, err := c.send("set_property", "pause", paused)
	return err
}

// AddVolume nudges the player volume by delta percentage points.
func (c *IPC) AddVolume(delta int) error {
	_, err := c.send("add", "volume", delta)
	return err
}

// Quit asks the player to exit.
func (c *IPC) Quit() error {
	_, err := c.send("quit")
	return err
}

// floatProperty fetches a numeric property, defaulting to 0.
func (c *IPC) floatProperty(name string) float64 {
	v, ok := c.GetProperty(name)
	if !ok {
		return 0
	}
	f, _ := v.(float64)
	return f
}

// boolProperty fetches a boolean property, defaulting to false.
func (c *IPC) boolProperty(name string) bool {
	v, ok := c.GetProperty(name)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// stringProperty fetches a string property, defaulting to "".
func (c *IPC) stringProperty(name string) string {
	v, ok := c.GetProperty(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
