package settings

import "kioskd/internal/state"

// Defaults returns the factory settings. They are written out verbatim when
// no settings file exists and serve as the base layer every loaded file is
// merged onto, so a partial file never leaves a field unset.
func Defaults() state.Settings {
	return state.Settings{
		Display: state.DisplaySettings{
			Width:      800,
			Height:     480,
			Fullscreen: true,
			FPS:        30,
		},
		Clock: state.ClockSettings{
			Format24h:   false,
			ShowSeconds: true,
			Timezone:    "America/New_York",
		},
		Weather: state.WeatherSettings{
			APIKey:                "",
			Lat:                   40.7128,
			Lon:                   -74.0060,
			Units:                 "imperial",
			UpdateIntervalMinutes: 30,
		},
		Theme: "dark",
		Audio: state.AudioSettings{
			OutputDevice: "default",
			Volume:       80,
		},
		Bluetooth: state.BluetoothSettings{
			SpeakerMAC:  "",
			AutoConnect: true,
		},
		Web: state.WebSettings{
			Port: 5000,
			Host: "0.0.0.0",
		},
		YouTube: state.YouTubeSettings{
			MaxResolution: 480,
			DefaultVolume: 80,
		},
		Dimming: state.DimmingSettings{
			Enabled:           true,
			DayStart:          "07:00",
			NightStart:        "21:00",
			DayBrightness:     100,
			NightBrightness:   30,
			TransitionMinutes: 30,
		},
	}
}

// DefaultTheme returns the built-in dark theme. It is the fallback whenever
// a requested theme file is missing or unreadable.
func DefaultTheme() state.Theme {
	return state.Theme{
		Name:       "Dark",
		Background: "#1a1a2e",
		Clock: state.ThemeClock{
			Color:    "#ffffff",
			FontSize: 72,
		},
		Weather: state.ThemeWeather{
			LabelColor:       "#888888",
			UseDynamicColors: true,
			StaticValueColor: "#ffffff",
		},
		Graph: state.ThemeGraph{
			Background: "#16213e",
			HighLine:   "#ff6b6b",
			LowLine:    "#4ecdc4",
			GridColor:  "#333333",
			LabelColor: "#888888",
		},
		StatusBar: state.ThemeStatusBar{
			Background: "#0f0f1a",
			TextColor:  "#666666",
		},
		Accents: state.ThemeAccents{
			Primary:   "#e94560",
			Secondary: "#0f3460",
		},
	}
}

// builtinThemes are the themes shipped to the themes directory on first run.
// The dark theme is authoritative; the rest are palette variations users can
// select or edit from the control panel.
func builtinThemes() map[string]state.Theme {
	dark := DefaultTheme()

	light := state.Theme{
		Name:       "Light",
		Background: "#f5f5f0",
		Clock: state.ThemeClock{
			Color:    "#1a1a2e",
			FontSize: 72,
		},
		Weather: state.ThemeWeather{
			LabelColor:       "#777777",
			UseDynamicColors: true,
			StaticValueColor: "#1a1a2e",
		},
		Graph: state.ThemeGraph{
			Background: "#e8e8e0",
			HighLine:   "#d64545",
			LowLine:    "#2a9d8f",
			GridColor:  "#cccccc",
			LabelColor: "#777777",
		},
		StatusBar: state.ThemeStatusBar{
			Background: "#e0e0d8",
			TextColor:  "#999999",
		},
		Accents: state.ThemeAccents{
			Primary:   "#e76f51",
			Secondary: "#264653",
		},
	}

	ocean := state.Theme{
		Name:       "Ocean",
		Background: "#0b2436",
		Clock: state.ThemeClock{
			Color:    "#e0fbfc",
			FontSize: 72,
		},
		Weather: state.ThemeWeather{
			LabelColor:       "#7a9ba8",
			UseDynamicColors: true,
			StaticValueColor: "#e0fbfc",
		},
		Graph: state.ThemeGraph{
			Background: "#123347",
			HighLine:   "#ee6c4d",
			LowLine:    "#98c1d9",
			GridColor:  "#1f4a63",
			LabelColor: "#7a9ba8",
		},
		StatusBar: state.ThemeStatusBar{
			Background: "#081a28",
			TextColor:  "#5c7a88",
		},
		Accents: state.ThemeAccents{
			Primary:   "#ee6c4d",
			Secondary: "#3d5a80",
		},
	}

	ember := state.Theme{
		Name:       "Ember",
		Background: "#1c1210",
		Clock: state.ThemeClock{
			Color:    "#ffe8d6",
			FontSize: 72,
		},
		Weather: state.ThemeWeather{
			LabelColor:       "#a08679",
			UseDynamicColors: true,
			StaticValueColor: "#ffe8d6",
		},
		Graph: state.ThemeGraph{
			Background: "#2a1b17",
			HighLine:   "#ff7b54",
			LowLine:    "#ffb26b",
			GridColor:  "#3d2a24",
			LabelColor: "#a08679",
		},
		StatusBar: state.ThemeStatusBar{
			Background: "#140d0b",
			TextColor:  "#7a6257",
		},
		Accents: state.ThemeAccents{
			Primary:   "#ff7b54",
			Secondary: "#8c3b2e",
		},
	}

	return map[string]state.Theme{
		"dark":  dark,
		"light": light,
		"ocean": ocean,
		"ember": ember,
	}
}
