// Package netinfo keeps the kiosk's local IP address in the store so the
// panel can show how to reach the device.
package netinfo

import (
	"context"
	"fmt"
	"net"
	"time"

	"kioskd/internal/bus"
	"kioskd/internal/infrastructure/logging"
	"kioskd/internal/state"
)

const (
	// waitTimeout is long: the worker has no commands, only the refresh.
	waitTimeout = 5 * time.Second

	// refreshInterval is how often the address is re-resolved, so DHCP
	// renewals and interface flaps show up without a restart.
	refreshInterval = 60 * time.Second
)

// probeAddr is the dial target for source-address discovery. Nothing is
// sent: a UDP "connect" only asks the kernel which local address routes
// there.
const probeAddr = "8.8.8.8:80"

// Deps carries the collaborators the worker needs.
type Deps struct {
	// Store holds the network info.
	Store *state.Store

	// Logger is the operational logger.
	Logger *logging.Logger
}

// Worker resolves the local IP on a fixed cadence. Best effort: with no
// route available the reported address is "unavailable" and the worker
// just tries again next interval.
type Worker struct {
	store  *state.Store
	logger *logging.Logger

	lastCheck time.Time
}

// New creates the worker.
func New(deps Deps) (*Worker, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Worker{
		store:  deps.Store,
		logger: deps.Logger.With("component", "netinfo"),
	}, nil
}

// Name implements worker.Worker.
func (w *Worker) Name() string {
	return "network"
}

// WaitTimeout implements worker.Worker.
func (w *Worker) WaitTimeout() time.Duration {
	return waitTimeout
}

// Startup resolves the address immediately so the panel never shows an
// empty field.
func (w *Worker) Startup(context.Context) {
	w.refresh()
	w.lastCheck = time.Now()
}

// HandleCommand implements worker.Worker. No commands route here.
func (w *Worker) HandleCommand(_ context.Context, cmd bus.Command) {
	w.logger.Debug("ignoring command", "type", string(cmd.Type))
}

// Tick re-resolves on the refresh cadence.
func (w *Worker) Tick(context.Context) {
	if time.Since(w.lastCheck) < refreshInterval {
		return
	}
	w.refresh()
	w.lastCheck = time.Now()
}

// Shutdown implements worker.Worker.
func (w *Worker) Shutdown(context.Context) {}

func (w *Worker) refresh() {
	info := state.NetworkInfo{
		IP:        LocalIP(),
		CheckedAt: time.Now(),
	}
	prev := w.store.GetNetwork()
	if prev.IP != info.IP {
		w.logger.Info("local address changed", "ip", info.IP)
	}
	w.store.SetNetwork(info)
}

// LocalIP returns the address the kernel would use for outbound traffic,
// or "unavailable" when no route exists. No packets leave the host.
func LocalIP() string {
	conn, err := net.Dial("udp", probeAddr)
	if err != nil {
		return "unavailable"
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP == nil {
		return "unavailable"
	}
	return addr.IP.String()
}
