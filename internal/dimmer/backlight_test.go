package dimmer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBacklightSysfsScaling(t *testing.T) {
	root, brightness := writeFakeSysfs(t, "rpi_backlight", 255)
	b := &Backlight{SysfsRoot: root}

	if err := b.Apply(context.Background(), 50); err != nil {
		t.Fatal(err)
	}
	// 50% of 255, rounded.
	if got := readBrightness(t, brightness); got != 128 {
		t.Errorf("raw brightness = %d, want 128", got)
	}

	if err := b.Apply(context.Background(), 100); err != nil {
		t.Fatal(err)
	}
	if got := readBrightness(t, brightness); got != 255 {
		t.Errorf("raw brightness = %d, want 255", got)
	}
}

func TestBacklightPrefersEarlierCandidate(t *testing.T) {
	root, _ := writeFakeSysfs(t, "intel_backlight", 100)
	dir := filepath.Join(root, "10-0045")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	mustWrite(t, filepath.Join(dir, "max_brightness"), "100")
	mustWrite(t, filepath.Join(dir, "brightness"), "0")

	b := &Backlight{SysfsRoot: root}
	if err := b.Apply(context.Background(), 70); err != nil {
		t.Fatal(err)
	}

	if got := readBrightness(t, filepath.Join(dir, "brightness")); got != 70 {
		t.Errorf("10-0045 brightness = %d, want 70", got)
	}
	if got := readBrightness(t, filepath.Join(root, "intel_backlight", "brightness")); got != 0 {
		t.Errorf("intel_backlight brightness = %d, want untouched 0", got)
	}
}

// writeFakeXrandr records invocations and serves a canned --query listing
// with one connected and one disconnected output.
func writeFakeXrandr(t *testing.T) (dir, tool string) {
	t.Helper()

	dir = t.TempDir()
	tool = filepath.Join(dir, "xrandr")

	script := fmt.Sprintf(`#!/bin/sh
dir=%q
echo "$*" >> "$dir/calls.log"
if [ "$1" = "--query" ]; then
	printf 'Screen 0: minimum 320 x 200, current 1920 x 1080, maximum 8192 x 8192\n'
	printf 'HDMI-1 connected primary 1920x1080+0+0 (normal left inverted) 509mm x 286mm\n'
	printf 'DP-1 disconnected (normal left inverted right x axis y axis)\n'
fi
exit 0
`, dir)
	if err := os.WriteFile(tool, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return dir, tool
}

func TestBacklightXrandrFallback(t *testing.T) {
	callDir, tool := writeFakeXrandr(t)
	// Empty sysfs root forces the fallback.
	b := &Backlight{SysfsRoot: t.TempDir(), Xrandr: tool}

	if err := b.Apply(context.Background(), 65); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(filepath.Join(callDir, "calls.log"))
	if err != nil {
		t.Fatal(err)
	}
	calls := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(calls) != 2 {
		t.Fatalf("calls = %v, want query then one set", calls)
	}
	if calls[0] != "--query" {
		t.Errorf("first call = %q, want --query", calls[0])
	}
	if calls[1] != "--output HDMI-1 --brightness 0.65" {
		t.Errorf("second call = %q, want HDMI-1 set", calls[1])
	}
}

func TestBacklightNoControlAvailable(t *testing.T) {
	b := &Backlight{SysfsRoot: t.TempDir(), Xrandr: filepath.Join(t.TempDir(), "missing-xrandr")}

	err := b.Apply(context.Background(), 50)
	if !errors.Is(err, ErrNoBacklight) {
		t.Errorf("err = %v, want ErrNoBacklight", err)
	}
}

func TestConnectedOutputs(t *testing.T) {
	const query = `Screen 0: minimum 320 x 200
HDMI-1 connected primary 1920x1080+0+0
DP-1 disconnected (normal)
eDP-1 connected 1366x768+0+0
`
	got := connectedOutputs(query)
	want := []string{"HDMI-1", "eDP-1"}
	if len(got) != len(want) {
		t.Fatalf("outputs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("output %d = %q, want %q", i, got[i], want[i])
		}
	}
}
