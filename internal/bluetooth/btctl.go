package bluetooth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"kioskd/internal/hostcmd"
	"kioskd/internal/state"
)

// Per-operation timeouts. Connect and pair involve radio round-trips and a
// remote stack; the rest answer from the local daemon.
const (
	infoTimeout       = 5 * time.Second
	trustTimeout      = 5 * time.Second
	connectTimeout    = 15 * time.Second
	disconnectTimeout = 10 * time.Second
	pairTimeout       = 30 * time.Second
	removeTimeout     = 10 * time.Second
	scanTimeout       = 2 * time.Second

	// scanWindow is how long discovery runs between scan on and scan off.
	scanWindow = 10 * time.Second
)

var (
	deviceLineRe = regexp.MustCompile(`Device\s+([0-9A-Fa-f:]{17})\s+(.+)`)
	nameLineRe   = regexp.MustCompile(`Name:\s+(.+)`)
)

// DeviceInfo is the parsed output of `bluetoothctl info <mac>`.
type DeviceInfo struct {
	Name      string
	Paired    bool
	Connected bool
	Trusted   bool
}

// Btctl wraps the bluetoothctl command line client.
//
// Thread Safety: stateless; safe for concurrent use, though the bluetooth
// worker is the only caller in practice.
type Btctl struct {
	bin string
}

// NewBtctl creates a runner invoking bin, a bare name resolved via PATH or
// an absolute path.
func NewBtctl(bin string) *Btctl {
	return &Btctl{bin: bin}
}

// Info queries a single device. The parse is tolerant: a device unknown to
// the daemon comes back with every flag false and an OK result.
func (b *Btctl) Info(ctx context.Context, mac string) (DeviceInfo, hostcmd.Result) {
	callCtx, cancel := context.WithTimeout(ctx, infoTimeout)
	defer cancel()

	res := hostcmd.Run(callCtx, b.bin, "info", mac)
	if !res.OK() {
		return DeviceInfo{}, res
	}
	return parseInfo(res.Stdout), res
}

// Trust marks a device trusted so the stack auto-reconnects it.
func (b *Btctl) Trust(ctx context.Context, mac string) hostcmd.Result {
	callCtx, cancel := context.WithTimeout(ctx, trustTimeout)
	defer cancel()

	return hostcmd.Run(callCtx, b.bin, "trust", mac)
}

// Connect attempts a connection. Success requires both a zero exit and the
// confirmation line: bluetoothctl exits zero on several failure modes.
func (b *Btctl) Connect(ctx context.Context, mac string) (bool, hostcmd.Result) {
	callCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	res := hostcmd.Run(callCtx, b.bin, "connect", mac)
	ok := res.OK() && strings.Contains(res.Stdout, "Connection successful")
	return ok, res
}

// Disconnect drops the link to a device.
func (b *Btctl) Disconnect(ctx context.Context, mac string) hostcmd.Result {
	callCtx, cancel := context.WithTimeout(ctx, disconnectTimeout)
	defer cancel()

	return hostcmd.Run(callCtx, b.bin, "disconnect", mac)
}

// Pair performs the pairing exchange with a device.
func (b *Btctl) Pair(ctx context.Context, mac string) hostcmd.Result {
	callCtx, cancel := context.WithTimeout(ctx, pairTimeout)
	defer cancel()

	return hostcmd.Run(callCtx, b.bin, "pair", mac)
}

// Remove unpairs a device and forgets it.
func (b *Btctl) Remove(ctx context.Context, mac string) hostcmd.Result {
	callCtx, cancel := context.WithTimeout(ctx, removeTimeout)
	defer cancel()

	return hostcmd.Run(callCtx, b.bin, "remove", mac)
}

// Scan runs one discovery window and returns whatever the daemon knows
// afterwards. The window wait is interruptible: on ctx cancellation the
// scan is stopped and the partial device list returned.
func (b *Btctl) Scan(ctx context.Context) ([]state.BluetoothDevice, hostcmd.Result) {
	onCtx, cancelOn := context.WithTimeout(ctx, scanTimeout)
	res := hostcmd.Run(onCtx, b.bin, "scan", "on")
	cancelOn()
	if res.Outcome == hostcmd.ToolMissing {
		return nil, res
	}

	select {
	case <-time.After(scanWindow):
	case <-ctx.Done():
	}

	offCtx, cancelOff := context.WithTimeout(context.WithoutCancel(ctx), scanTimeout)
	hostcmd.Run(offCtx, b.bin, "scan", "off")
	cancelOff()

	listCtx, cancelList := context.WithTimeout(context.WithoutCancel(ctx), infoTimeout)
	defer cancelList()

	res = hostcmd.Run(listCtx, b.bin, "devices")
	if !res.OK() {
		return nil, res
	}
	return parseDevices(res.Stdout), res
}

// parseDevices extracts `Device XX:XX:XX:XX:XX:XX Name` lines.
func parseDevices(out string) []state.BluetoothDevice {
	var devices []state.BluetoothDevice
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		m := deviceLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		devices = append(devices, state.BluetoothDevice{
			MAC:  m[1],
			Name: strings.TrimSpace(m[2]),
		})
	}
	return devices
}

// parseInfo extracts the flags and name from `bluetoothctl info` output.
func parseInfo(out string) DeviceInfo {
	info := DeviceInfo{
		Paired:    strings.Contains(out, "Paired: yes"),
		Connected: strings.Contains(out, "Connected: yes"),
		Trusted:   strings.Contains(out, "Trusted: yes"),
	}
	if m := nameLineRe.FindStringSubmatch(out); m != nil {
		info.Name = strings.TrimSpace(m[1])
	}
	return info
}
