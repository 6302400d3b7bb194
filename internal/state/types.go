package state

import "time"

// Settings is the live device settings document.
//
// It is always fully populated: the settings loader deep-merges whatever is
// on disk onto the built-in defaults before it ever reaches the store, so
// consumers never test for absent fields.
type Settings struct {
	Display   DisplaySettings   `json:"display"`
	Clock     ClockSettings     `json:"clock"`
	Weather   WeatherSettings   `json:"weather"`
	Theme     string            `json:"theme"`
	Audio     AudioSettings     `json:"audio"`
	Bluetooth BluetoothSettings `json:"bluetooth"`
	Web       WebSettings       `json:"web"`
	YouTube   YouTubeSettings   `json:"youtube"`
	Dimming   DimmingSettings   `json:"dimming"`
}

// DisplaySettings describes the physical panel.
type DisplaySettings struct {
	Width      int  `json:"width"`
	Height     int  `json:"height"`
	Fullscreen bool `json:"fullscreen"`
	FPS        int  `json:"fps"`
}

// ClockSettings controls the clock face.
type ClockSettings struct {
	Format24h   bool   `json:"format_24h"`
	ShowSeconds bool   `json:"show_seconds"`
	Timezone    string `json:"timezone"`
}

// WeatherSettings controls the weather fetcher.
type WeatherSettings struct {
	APIKey                string  `json:"api_key"`
	Lat                   float64 `json:"lat"`
	Lon                   float64 `json:"lon"`
	Units                 string  `json:"units"`
	UpdateIntervalMinutes int     `json:"update_interval_minutes"`
}

// AudioSettings names the preferred output sink and volume.
type AudioSettings struct {
	OutputDevice string `json:"output_device"`
	Volume       int    `json:"volume"`
}

// BluetoothSettings remembers the speaker the kiosk should hold on to.
type BluetoothSettings struct {
	SpeakerMAC  string `json:"speaker_mac"`
	AutoConnect bool   `json:"auto_connect"`
}

// WebSettings mirrors the control surface bind address into the live
// settings document so the panel UI can display it. The actual listener
// binds from the bootstrap config; changing these takes effect on restart.
type WebSettings struct {
	Port int    `json:"port"`
	Host string `json:"host"`
}

// YouTubeSettings bounds media playback.
type YouTubeSettings struct {
	MaxResolution int `json:"max_resolution"`
	DefaultVolume int `json:"default_volume"`
}

// DimmingSettings is the day/night backlight schedule.
type DimmingSettings struct {
	Enabled           bool   `json:"enabled"`
	DayStart          string `json:"day_start"`
	NightStart        string `json:"night_start"`
	DayBrightness     int    `json:"day_brightness"`
	NightBrightness   int    `json:"night_brightness"`
	TransitionMinutes int    `json:"transition_minutes"`
}

// Theme is a named bundle of colour and size values keyed by UI concern.
// Immutable once loaded; replaced wholesale on theme change.
type Theme struct {
	Name       string         `json:"name"`
	Background string         `json:"background"`
	Clock      ThemeClock     `json:"clock"`
	Weather    ThemeWeather   `json:"weather"`
	Graph      ThemeGraph     `json:"graph"`
	StatusBar  ThemeStatusBar `json:"status_bar"`
	Accents    ThemeAccents   `json:"accents"`
}

// ThemeClock styles the clock face.
type ThemeClock struct {
	Color    string `json:"color"`
	FontSize int    `json:"font_size"`
}

// ThemeWeather styles the weather widgets.
type ThemeWeather struct {
	LabelColor       string `json:"label_color"`
	UseDynamicColors bool   `json:"use_dynamic_colors"`
	StaticValueColor string `json:"static_value_color"`
}

// ThemeGraph styles the forecast graph.
type ThemeGraph struct {
	Background string `json:"background"`
	HighLine   string `json:"high_line"`
	LowLine    string `json:"low_line"`
	GridColor  string `json:"grid_color"`
	LabelColor string `json:"label_color"`
}

// ThemeStatusBar styles the bottom status strip.
type ThemeStatusBar struct {
	Background string `json:"background"`
	TextColor  string `json:"text_color"`
}

// ThemeAccents are the two accent colours shared across widgets.
type ThemeAccents struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// WeatherSnapshot is the last provider payload and when it was fetched.
//
// FetchedAt is when Data was retrieved from the provider; a cache seed
// carries the cached fetch time, so it reflects the true age of the data.
// Nil means no payload has ever arrived. Data is provider-shaped and
// treated as opaque.
type WeatherSnapshot struct {
	FetchedAt *time.Time     `json:"fetched_at"`
	Data      map[string]any `json:"data"`
}

// DeepCopy returns a copy sharing no mutable internals with the original.
func (w WeatherSnapshot) DeepCopy() WeatherSnapshot {
	cpy := w
	if w.FetchedAt != nil {
		ts := *w.FetchedAt
		cpy.FetchedAt = &ts
	}
	cpy.Data = deepCopyMap(w.Data)
	return cpy
}

// MediaStatus reflects the single playback session, if any.
//
// Reset to the zero value whenever playback stops or the player process
// exits on its own; position and duration are updated continuously while
// playing.
type MediaStatus struct {
	Playing  bool    `json:"playing"`
	VideoID  string  `json:"video_id"`
	Title    string  `json:"title"`
	Position float64 `json:"position_seconds"`
	Duration float64 `json:"duration_seconds"`
	Paused   bool    `json:"paused"`
}

// BluetoothDevice is one entry from a discovery scan.
type BluetoothDevice struct {
	MAC  string `json:"mac"`
	Name string `json:"name"`
}

// BluetoothStatus reflects the remembered speaker link plus the most recent
// scan results. Written only by the bluetooth worker.
type BluetoothStatus struct {
	Connected  bool              `json:"connected"`
	DeviceName string            `json:"device_name"`
	DeviceMAC  string            `json:"device_mac"`
	Scanning   bool              `json:"scanning"`
	Discovered []BluetoothDevice `json:"discovered"`
}

// DeepCopy returns a copy sharing no mutable internals with the original.
func (b BluetoothStatus) DeepCopy() BluetoothStatus {
	cpy := b
	if b.Discovered != nil {
		cpy.Discovered = make([]BluetoothDevice, len(b.Discovered))
		copy(cpy.Discovered, b.Discovered)
	}
	return cpy
}

// AudioDevice is one enumerated output sink.
type AudioDevice struct {
	ID           string `json:"id"`
	FriendlyName string `json:"friendly_name"`
}

// AudioStatus reflects the current sink, volume, and what is plugged in.
// Written only by the audio worker.
type AudioStatus struct {
	OutputDevice     string        `json:"output_device"`
	Volume           int           `json:"volume"`
	AvailableDevices []AudioDevice `json:"available_devices"`
}

// DeepCopy returns a copy sharing no mutable internals with the original.
func (a AudioStatus) DeepCopy() AudioStatus {
	cpy := a
	if a.AvailableDevices != nil {
		cpy.AvailableDevices = make([]AudioDevice, len(a.AvailableDevices))
		copy(cpy.AvailableDevices, a.AvailableDevices)
	}
	return cpy
}

// NetworkInfo is the best-effort local address shown in the status bar.
type NetworkInfo struct {
	IP        string    `json:"ip"`
	CheckedAt time.Time `json:"checked_at"`
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue copies nested maps and slices; scalars pass through.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, item := range val {
			cpy[i] = deepCopyValue(item)
		}
		return cpy
	default:
		return v
	}
}
