package bus

import (
	"fmt"
	"regexp"
	"strings"
)

// macPattern matches a colon-separated 48-bit hardware address.
var macPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$`)

// knownTypes is the closed set of accepted command types.
var knownTypes = map[CommandType]struct{}{
	CmdAudioSetDevice:       {},
	CmdAudioSetVolume:       {},
	CmdAudioRefresh:         {},
	CmdBluetoothScan:        {},
	CmdBluetoothConnect:     {},
	CmdBluetoothDisconnect:  {},
	CmdBluetoothPair:        {},
	CmdBluetoothRemove:      {},
	CmdYouTubePlay:          {},
	CmdYouTubePause:         {},
	CmdYouTubeResume:        {},
	CmdYouTubeStop:          {},
	CmdYouTubeVolumeUp:      {},
	CmdYouTubeVolumeDown:    {},
	CmdDimmingSetBrightness: {},
	CmdDimmingAuto:          {},
	CmdWeatherRefresh:       {},
	CmdThemeChange:          {},
}

// KnownCommandType reports whether t is part of the command vocabulary.
func KnownCommandType(t CommandType) bool {
	_, ok := knownTypes[t]
	return ok
}

// ValidMAC reports whether s looks like a colon-separated MAC address.
func ValidMAC(s string) bool {
	return macPattern.MatchString(s)
}

// Validate checks a command at the boundary: the type must be known and the
// parameter fields that type uses must be present and in range. Workers
// trust validated commands and never re-check.
func (c Command) Validate() error {
	if !KnownCommandType(c.Type) {
		return fmt.Errorf("unknown command type %q", c.Type)
	}

	switch c.Type {
	case CmdAudioSetDevice:
		if strings.TrimSpace(c.Device) == "" {
			return fmt.Errorf("%s requires a device", c.Type)
		}
	case CmdAudioSetVolume:
		if c.Volume < 0 || c.Volume > 100 {
			return fmt.Errorf("%s volume %d out of range 0-100", c.Type, c.Volume)
		}
	case CmdBluetoothConnect, CmdBluetoothPair, CmdBluetoothRemove:
		if !ValidMAC(c.MAC) {
			return fmt.Errorf("%s requires a valid MAC address", c.Type)
		}
	case CmdYouTubePlay:
		if strings.TrimSpace(c.URL) == "" {
			return fmt.Errorf("%s requires a url", c.Type)
		}
	case CmdDimmingSetBrightness:
		if c.Brightness < 0 || c.Brightness > 100 {
			return fmt.Errorf("%s brightness %d out of range 0-100", c.Type, c.Brightness)
		}
	case CmdThemeChange:
		if strings.TrimSpace(c.Theme) == "" {
			return fmt.Errorf("%s requires a theme name", c.Type)
		}
	}
	return nil
}
