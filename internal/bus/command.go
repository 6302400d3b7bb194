package bus

import (
	"strings"

	"github.com/google/uuid"
)

// CommandType names one operation in the flat command namespace. The prefix
// before the first underscore is the owning domain.
type CommandType string

// The full command vocabulary. Anything else is a logged no-op.
const (
	CmdAudioSetDevice CommandType = "audio_set_device"
	CmdAudioSetVolume CommandType = "audio_set_volume"
	CmdAudioRefresh   CommandType = "audio_refresh"

	CmdBluetoothScan       CommandType = "bluetooth_scan"
	CmdBluetoothConnect    CommandType = "bluetooth_connect"
	CmdBluetoothDisconnect CommandType = "bluetooth_disconnect"
	CmdBluetoothPair       CommandType = "bluetooth_pair"
	CmdBluetoothRemove     CommandType = "bluetooth_remove"

	CmdYouTubePlay       CommandType = "youtube_play"
	CmdYouTubePause      CommandType = "youtube_pause"
	CmdYouTubeResume     CommandType = "youtube_resume"
	CmdYouTubeStop       CommandType = "youtube_stop"
	CmdYouTubeVolumeUp   CommandType = "youtube_volume_up"
	CmdYouTubeVolumeDown CommandType = "youtube_volume_down"

	CmdDimmingSetBrightness CommandType = "dimming_set_brightness"
	CmdDimmingAuto          CommandType = "dimming_auto"

	CmdWeatherRefresh CommandType = "weather_refresh"

	CmdThemeChange CommandType = "theme_change"
)

// Domain returns the worker domain a command type addresses: the segment
// before the first underscore ("audio_set_volume" → "audio").
func (t CommandType) Domain() string {
	s := string(t)
	if i := strings.IndexByte(s, '_'); i > 0 {
		return s[:i]
	}
	return s
}

// Command is one externally issued operation. It is a flat struct with
// typed parameter fields; the producer (API handler or MQTT bridge)
// validates and populates only the fields its type uses, so workers never
// probe for key presence.
type Command struct {
	// ID correlates the command across the boundary log, the supervisor
	// dispatch log, and the worker's action entries.
	ID   string      `json:"id"`
	Type CommandType `json:"type"`

	Device     string `json:"device,omitempty"`
	Volume     int    `json:"volume,omitempty"`
	MAC        string `json:"mac,omitempty"`
	URL        string `json:"url,omitempty"`
	VideoID    string `json:"video_id,omitempty"`
	Brightness int    `json:"brightness,omitempty"`
	Theme      string `json:"theme,omitempty"`
}

// NewCommand creates a command of the given type with a fresh correlation
// ID. Callers set the parameter fields the type needs.
func NewCommand(t CommandType) Command {
	return Command{
		ID:   uuid.NewString(),
		Type: t,
	}
}

// Domain returns the worker domain this command addresses.
func (c Command) Domain() string {
	return c.Type.Domain()
}
