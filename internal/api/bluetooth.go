package api

import (
	"net/http"

	"kioskd/internal/bus"
)

// handleBluetoothStatus returns the speaker link state.
func (s *Server) handleBluetoothStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.GetBluetooth())
}

// handleBluetoothDevices returns the most recent scan results.
func (s *Server) handleBluetoothDevices(w http.ResponseWriter, _ *http.Request) {
	bt := s.store.GetBluetooth()
	writeJSON(w, http.StatusOK, map[string]any{
		"devices":  bt.Discovered,
		"scanning": bt.Scanning,
	})
}

// handleBluetoothScan starts a discovery scan.
func (s *Server) handleBluetoothScan(w http.ResponseWriter, _ *http.Request) {
	s.acceptCommand(w, bus.NewCommand(bus.CmdBluetoothScan))
}

// handleBluetoothConnect connects to a speaker by MAC.
func (s *Server) handleBluetoothConnect(w http.ResponseWriter, r *http.Request) {
	s.acceptMACCommand(w, r, bus.CmdBluetoothConnect)
}

// handleBluetoothDisconnect drops the current speaker link.
func (s *Server) handleBluetoothDisconnect(w http.ResponseWriter, _ *http.Request) {
	s.acceptCommand(w, bus.NewCommand(bus.CmdBluetoothDisconnect))
}

// handleBluetoothPair pairs with a device by MAC.
func (s *Server) handleBluetoothPair(w http.ResponseWriter, r *http.Request) {
	s.acceptMACCommand(w, r, bus.CmdBluetoothPair)
}

// handleBluetoothRemove unpairs a device by MAC.
func (s *Server) handleBluetoothRemove(w http.ResponseWriter, r *http.Request) {
	s.acceptMACCommand(w, r, bus.CmdBluetoothRemove)
}

// acceptMACCommand reads a {mac} body and enqueues the given command type.
func (s *Server) acceptMACCommand(w http.ResponseWriter, r *http.Request, t bus.CommandType) {
	var body struct {
		MAC string `json:"mac"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	cmd := bus.NewCommand(t)
	cmd.MAC = body.MAC
	s.acceptCommand(w, cmd)
}
