package bluetooth

import (
	"context"
	"fmt"
	"time"

	"kioskd/internal/bus"
	"kioskd/internal/hostcmd"
	"kioskd/internal/infrastructure/logging"
	"kioskd/internal/logbook"
	"kioskd/internal/state"
)

const (
	// waitTimeout is the inbox wait per iteration.
	waitTimeout = 2 * time.Second

	// probeInterval is the cadence of the connection drift check. Bluetooth
	// links drop without any command being issued, so the remembered device
	// is probed independently of traffic.
	probeInterval = 10 * time.Second
)

// Deps carries the collaborators the worker needs. All are required.
type Deps struct {
	// Store holds the bluetooth status and the live settings.
	Store *state.Store

	// Recorder is the kiosk event journal.
	Recorder *logbook.Recorder

	// Tool is the bluetoothctl binary, a bare name or an absolute path.
	Tool string

	// Logger is the operational logger.
	Logger *logging.Logger
}

// Worker owns the bluetooth domain. It manages a single remembered speaker:
// auto-connect at startup, explicit connect/disconnect/pair/remove commands,
// discovery scans, and the periodic drift probe.
//
// All methods run on the single runner goroutine; no locking is needed.
type Worker struct {
	store    *state.Store
	recorder *logbook.Recorder
	btctl    *Btctl
	logger   *logging.Logger

	// lastProbe gates the drift check.
	lastProbe time.Time
}

// New creates the worker.
func New(deps Deps) (*Worker, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Recorder == nil {
		return nil, fmt.Errorf("recorder is required")
	}
	if deps.Tool == "" {
		return nil, fmt.Errorf("bluetoothctl tool is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &Worker{
		store:    deps.Store,
		recorder: deps.Recorder,
		btctl:    NewBtctl(deps.Tool),
		logger:   deps.Logger.With("component", "bluetooth"),
	}, nil
}

// Name implements worker.Worker.
func (w *Worker) Name() string {
	return "bluetooth"
}

// WaitTimeout implements worker.Worker.
func (w *Worker) WaitTimeout() time.Duration {
	return waitTimeout
}

// Startup attempts an auto-connect to the remembered speaker, if enabled.
func (w *Worker) Startup(ctx context.Context) {
	w.recorder.Info("Bluetooth service started")

	bt := w.store.GetSettings().Bluetooth
	if !bt.AutoConnect || bt.SpeakerMAC == "" {
		return
	}
	w.recorder.Info("Attempting auto-connect to %s", bt.SpeakerMAC)
	w.connect(ctx, bt.SpeakerMAC)
}

// HandleCommand implements worker.Worker.
func (w *Worker) HandleCommand(ctx context.Context, cmd bus.Command) {
	switch cmd.Type {
	case bus.CmdBluetoothScan:
		w.scan(ctx)
	case bus.CmdBluetoothConnect:
		if cmd.MAC != "" {
			w.connect(ctx, cmd.MAC)
		}
	case bus.CmdBluetoothDisconnect:
		w.disconnect(ctx)
	case bus.CmdBluetoothPair:
		if cmd.MAC != "" {
			w.pair(ctx, cmd.MAC)
		}
	case bus.CmdBluetoothRemove:
		if cmd.MAC != "" {
			w.remove(ctx, cmd.MAC)
		}
	default:
		w.logger.Debug("ignoring command", "type", string(cmd.Type))
	}
}

// Tick runs the drift probe on its fixed cadence.
func (w *Worker) Tick(ctx context.Context) {
	if time.Since(w.lastProbe) < probeInterval {
		return
	}
	w.lastProbe = time.Now()
	w.probe(ctx)
}

// Shutdown implements worker.Worker. The link is left up: the speaker keeps
// playing whatever routed to it, and the stack reconnects on next start.
func (w *Worker) Shutdown(context.Context) {}

// scan runs one discovery window and publishes the result. The Scanning
// flag is visible to the panel for the duration of the window.
func (w *Worker) scan(ctx context.Context) {
	w.recorder.Action("Starting Bluetooth scan")

	status := w.store.GetBluetooth()
	status.Scanning = true
	status.Discovered = nil
	w.store.SetBluetooth(status)

	devices, res := w.btctl.Scan(ctx)

	status = w.store.GetBluetooth()
	status.Scanning = false
	status.Discovered = devices
	w.store.SetBluetooth(status)

	if !res.OK() {
		w.fail(res, "Bluetooth scan timeout", "Bluetooth scan failed: %s")
		return
	}
	w.recorder.Action("Found %d Bluetooth devices", len(devices))
}

// connect trusts then connects a device, remembering it on success. Trust
// failure is not fatal; the connect attempt decides the outcome.
func (w *Worker) connect(ctx context.Context, mac string) {
	w.recorder.Action("Connecting to Bluetooth device %s", mac)

	if res := w.btctl.Trust(ctx, mac); res.Outcome == hostcmd.ToolMissing {
		w.recorder.Error("bluetoothctl not found. Install bluez.")
		return
	}

	ok, res := w.btctl.Connect(ctx, mac)
	if !ok {
		if res.Outcome == hostcmd.OK {
			// Ran fine but the device refused or is out of range.
			w.recorder.Error("Failed to connect: %s", connectDetail(res))
		} else {
			w.fail(res, "Bluetooth connect timeout", "Bluetooth connect failed: %s")
		}
		w.setDisconnected()
		return
	}

	name := mac
	if info, infoRes := w.btctl.Info(ctx, mac); infoRes.OK() && info.Name != "" {
		name = info.Name
	}
	w.store.SetBluetooth(state.BluetoothStatus{
		Connected:  true,
		DeviceName: name,
		DeviceMAC:  mac,
	})
	w.recorder.Action("Connected to %s", name)
}

// disconnect drops the remembered device, if any.
func (w *Worker) disconnect(ctx context.Context) {
	status := w.store.GetBluetooth()
	if status.DeviceMAC == "" {
		return
	}

	w.recorder.Action("Disconnecting Bluetooth device %s", status.DeviceMAC)

	res := w.btctl.Disconnect(ctx, status.DeviceMAC)
	if res.Outcome == hostcmd.ToolMissing {
		w.recorder.Error("bluetoothctl not found")
		return
	}

	w.setDisconnected()
	w.recorder.Action("Bluetooth disconnected")
}

// pair performs the pairing exchange. Pairing does not connect; the panel
// issues a connect afterwards.
func (w *Worker) pair(ctx context.Context, mac string) {
	w.recorder.Action("Pairing with Bluetooth device %s", mac)

	res := w.btctl.Pair(ctx, mac)
	if !res.OK() {
		w.fail(res, "Bluetooth pair timeout", "Failed to pair: %s")
		return
	}
	w.recorder.Action("Paired with %s", mac)
}

// remove unpairs a device. Removing the remembered device also clears the
// stored link.
func (w *Worker) remove(ctx context.Context, mac string) {
	w.recorder.Action("Removing Bluetooth device %s", mac)

	res := w.btctl.Remove(ctx, mac)
	if !res.OK() {
		w.fail(res, "Bluetooth remove timeout", "Failed to remove: %s")
		return
	}
	w.recorder.Action("Removed device %s", mac)

	if w.store.GetBluetooth().DeviceMAC == mac {
		w.setDisconnected()
	}
}

// probe checks whether the remembered device is still reported connected.
// The transition to disconnected fires exactly once per drop: further
// probes that also report not-connected see Connected already false and
// do nothing.
func (w *Worker) probe(ctx context.Context) {
	status := w.store.GetBluetooth()
	if status.DeviceMAC == "" {
		return
	}

	info, res := w.btctl.Info(ctx, status.DeviceMAC)
	if !res.OK() {
		// A failed probe is not evidence of a drop; leave state alone.
		w.logger.Debug("bluetooth probe failed", "outcome", res.Outcome.String())
		return
	}

	if !info.Connected && status.Connected {
		w.setDisconnected()
		w.recorder.Action("Bluetooth device %s disconnected", status.DeviceMAC)
	}
}

// setDisconnected clears the link while keeping scan results visible.
func (w *Worker) setDisconnected() {
	status := w.store.GetBluetooth()
	status.Connected = false
	status.DeviceName = ""
	status.DeviceMAC = ""
	w.store.SetBluetooth(status)
}

// fail records a non-OK result using the uniform policy wording.
func (w *Worker) fail(res hostcmd.Result, timeoutMsg, failedFmt string) {
	switch res.Outcome {
	case hostcmd.TimedOut:
		w.recorder.Error("%s", timeoutMsg)
	case hostcmd.ToolMissing:
		w.recorder.Error("bluetoothctl not found. Install bluez.")
	default:
		w.recorder.Error(failedFmt, connectDetail(res))
	}
}

// connectDetail picks the most useful line for a failure message.
func connectDetail(res hostcmd.Result) string {
	if detail := hostcmd.FirstLine(res.Stderr); detail != "" {
		return detail
	}
	if detail := hostcmd.FirstLine(res.Stdout); detail != "" {
		return detail
	}
	if res.Err != nil {
		return res.Err.Error()
	}
	return res.Outcome.String()
}
