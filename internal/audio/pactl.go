package audio

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"kioskd/internal/hostcmd"
	"kioskd/internal/state"
)

// pactlTimeout bounds every pactl invocation. The tool answers instantly on
// a healthy PulseAudio; anything longer means the sound server is wedged.
const pactlTimeout = 5 * time.Second

// defaultSinkSpec is the pactl placeholder for the current default sink.
const defaultSinkSpec = "@DEFAULT_SINK@"

var volumeRe = regexp.MustCompile(`(\d+)%`)

// Pactl wraps the PulseAudio command line client.
//
// Thread Safety: stateless; safe for concurrent use, though the audio worker
// is the only caller in practice.
type Pactl struct {
	bin string
}

// NewPactl creates a runner invoking bin, a bare name resolved via PATH or
// an absolute path.
func NewPactl(bin string) *Pactl {
	return &Pactl{bin: bin}
}

// Sinks enumerates the available output sinks with friendly names. The
// returned Result reports the outcome of the sink listing; the description
// lookup is best effort and never fails the call.
func (p *Pactl) Sinks(ctx context.Context) ([]state.AudioDevice, hostcmd.Result) {
	callCtx, cancel := context.WithTimeout(ctx, pactlTimeout)
	defer cancel()

	res := hostcmd.Run(callCtx, p.bin, "list", "short", "sinks")
	if !res.OK() {
		return nil, res
	}

	ids := parseShortSinks(res.Stdout)
	if len(ids) == 0 {
		return nil, res
	}

	descriptions := p.sinkDescriptions(ctx)

	devices := make([]state.AudioDevice, 0, len(ids))
	for _, id := range ids {
		devices = append(devices, state.AudioDevice{
			ID:           id,
			FriendlyName: friendlyName(id, descriptions),
		})
	}
	return devices, res
}

// sinkDescriptions maps sink names to their human descriptions. Failures
// return an empty map; callers fall back to cleaned-up sink names.
func (p *Pactl) sinkDescriptions(ctx context.Context) map[string]string {
	callCtx, cancel := context.WithTimeout(ctx, pactlTimeout)
	defer cancel()

	res := hostcmd.Run(callCtx, p.bin, "list", "sinks")
	if !res.OK() {
		return nil
	}
	return parseSinkDescriptions(res.Stdout)
}

// SetDefaultSink makes sink the default output.
func (p *Pactl) SetDefaultSink(ctx context.Context, sink string) hostcmd.Result {
	callCtx, cancel := context.WithTimeout(ctx, pactlTimeout)
	defer cancel()

	return hostcmd.Run(callCtx, p.bin, "set-default-sink", sink)
}

// SetVolume sets the default sink volume to percent.
func (p *Pactl) SetVolume(ctx context.Context, percent int) hostcmd.Result {
	callCtx, cancel := context.WithTimeout(ctx, pactlTimeout)
	defer cancel()

	return hostcmd.Run(callCtx, p.bin, "set-sink-volume", defaultSinkSpec, fmt.Sprintf("%d%%", percent))
}

// CurrentVolume reads the default sink volume back from PulseAudio. Returns
// false when the tool fails or the output has no percentage in it.
func (p *Pactl) CurrentVolume(ctx context.Context) (int, bool) {
	callCtx, cancel := context.WithTimeout(ctx, pactlTimeout)
	defer cancel()

	res := hostcmd.Run(callCtx, p.bin, "get-sink-volume", defaultSinkSpec)
	if !res.OK() {
		return 0, false
	}

	// Output shape: "Volume: front-left: 52428 /  80% / -5.81 dB, ..."
	m := volumeRe.FindStringSubmatch(res.Stdout)
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseShortSinks extracts sink names from `pactl list short sinks` output.
// Each line is tab-separated: index, name, driver, sample spec, state.
func parseShortSinks(out string) []string {
	var ids []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) >= 2 {
			ids = append(ids, parts[1])
		}
	}
	return ids
}

// parseSinkDescriptions extracts Name → Description pairs from
// `pactl list sinks` output.
func parseSinkDescriptions(out string) map[string]string {
	descriptions := make(map[string]string)
	var current string
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.Contains(line, "Name:"):
			current = strings.TrimSpace(strings.SplitN(line, "Name:", 2)[1])
		case strings.Contains(line, "Description:") && current != "":
			descriptions[current] = strings.TrimSpace(strings.SplitN(line, "Description:", 2)[1])
		}
	}
	return descriptions
}

// friendlyName returns the sink's description when one is known, otherwise a
// cleaned-up rendering of the sink name itself.
func friendlyName(sink string, descriptions map[string]string) string {
	if d := descriptions[sink]; d != "" {
		return d
	}
	name := strings.ReplaceAll(sink, "alsa_output.", "")
	name = strings.ReplaceAll(name, "bluez_sink.", "Bluetooth: ")
	name = strings.ReplaceAll(name, ".analog-stereo", "")
	name = strings.ReplaceAll(name, ".a2dp_sink", "")
	name = strings.ReplaceAll(name, "_", " ")
	return name
}
