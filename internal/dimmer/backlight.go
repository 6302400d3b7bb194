package dimmer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"kioskd/internal/hostcmd"
)

// sysfs backlight drivers probed in order. The first directory with a
// writable brightness file wins.
var sysfsCandidates = []string{"rpi_backlight", "10-0045", "intel_backlight"}

// Backlight applies a brightness percentage to the display, preferring a
// sysfs backlight device and falling back to xrandr software dimming on
// desktops without one.
type Backlight struct {
	// SysfsRoot is the backlight class directory, normally
	// /sys/class/backlight. Overridable for tests.
	SysfsRoot string
	// Xrandr is the xrandr binary name or path.
	Xrandr string

	sysfsDir string
	maxRaw   int
	probed   bool
}

// ErrNoBacklight is returned when neither a sysfs device nor xrandr can
// apply brightness.
var ErrNoBacklight = fmt.Errorf("no backlight control available")

// Apply sets the display brightness to percent (0-100).
func (b *Backlight) Apply(ctx context.Context, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	if dir, maxRaw, ok := b.sysfs(); ok {
		raw := (percent*maxRaw + 50) / 100
		path := filepath.Join(dir, "brightness")
		if err := os.WriteFile(path, []byte(strconv.Itoa(raw)), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		return nil
	}
	return b.xrandr(ctx, percent)
}

// sysfs probes the candidate backlight devices once and caches the result.
func (b *Backlight) sysfs() (string, int, bool) {
	if !b.probed {
		b.probed = true
		root := b.SysfsRoot
		if root == "" {
			root = "/sys/class/backlight"
		}
		for _, name := range sysfsCandidates {
			dir := filepath.Join(root, name)
			raw, err := os.ReadFile(filepath.Join(dir, "max_brightness"))
			if err != nil {
				continue
			}
			maxRaw, err := strconv.Atoi(strings.TrimSpace(string(raw)))
			if err != nil || maxRaw <= 0 {
				continue
			}
			b.sysfsDir = dir
			b.maxRaw = maxRaw
			break
		}
	}
	return b.sysfsDir, b.maxRaw, b.sysfsDir != ""
}

const xrandrTimeout = 5 * time.Second

// xrandr dims every connected output in software. X is assumed to be on
// display :0, which is where the kiosk session runs.
func (b *Backlight) xrandr(ctx context.Context, percent int) error {
	qctx, cancel := context.WithTimeout(ctx, xrandrTimeout)
	defer cancel()
	res := hostcmd.RunEnv(qctx, []string{"DISPLAY=:0"}, b.Xrandr, "--query")
	if res.Outcome != hostcmd.OK {
		return fmt.Errorf("%w: xrandr query failed", ErrNoBacklight)
	}

	outputs := connectedOutputs(res.Stdout)
	if len(outputs) == 0 {
		return fmt.Errorf("%w: no connected outputs", ErrNoBacklight)
	}

	level := strconv.FormatFloat(float64(percent)/100, 'f', 2, 64)
	for _, out := range outputs {
		sctx, cancel := context.WithTimeout(ctx, xrandrTimeout)
		res := hostcmd.RunEnv(sctx, []string{"DISPLAY=:0"}, b.Xrandr, "--output", out, "--brightness", level)
		cancel()
		if res.Outcome != hostcmd.OK {
			return fmt.Errorf("xrandr --output %s failed", out)
		}
	}
	return nil
}

func connectedOutputs(query string) []string {
	var outputs []string
	for _, line := range strings.Split(query, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == "connected" {
			outputs = append(outputs, fields[0])
		}
	}
	return outputs
}
