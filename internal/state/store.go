package state

import "sync"

// Store is the single shared record of current device and application state.
//
// Every component reads through it; each field has exactly one writer (the
// owning worker, or the settings manager for Settings/Theme). All accessors
// copy in and out, so no mutable internals are ever aliased across
// goroutines, and the mutex is held only for the copy itself — never across
// I/O or an external call.
//
// Replacement is atomic per field, not per store: a reader may observe
// Settings updated while AudioStatus is not yet, and must not assume
// multi-field consistency beyond a single accessor call.
type Store struct {
	mu        sync.Mutex
	settings  Settings
	theme     Theme
	weather   WeatherSnapshot
	media     MediaStatus
	bluetooth BluetoothStatus
	audio     AudioStatus
	network   NetworkInfo
}

// New creates an empty Store. The settings manager populates Settings and
// Theme before any worker starts, so consumers never observe the zero
// document.
func New() *Store {
	return &Store{}
}

// GetSettings returns a copy of the current settings document.
func (s *Store) GetSettings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SetSettings replaces the settings document. Writer: settings manager.
func (s *Store) SetSettings(v Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = v
}

// GetTheme returns a copy of the active theme.
func (s *Store) GetTheme() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// SetTheme replaces the active theme. Writer: settings manager.
func (s *Store) SetTheme(v Theme) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = v
}

// GetWeather returns a deep copy of the weather snapshot.
func (s *Store) GetWeather() WeatherSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.weather.DeepCopy()
}

// SetWeather replaces the weather snapshot. Writer: weather worker.
func (s *Store) SetWeather(v WeatherSnapshot) {
	cpy := v.DeepCopy()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weather = cpy
}

// GetMedia returns a copy of the playback status.
func (s *Store) GetMedia() MediaStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.media
}

// SetMedia replaces the playback status. Writer: media player worker.
func (s *Store) SetMedia(v MediaStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.media = v
}

// GetBluetooth returns a deep copy of the bluetooth status.
func (s *Store) GetBluetooth() BluetoothStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bluetooth.DeepCopy()
}

// SetBluetooth replaces the bluetooth status. Writer: bluetooth worker.
func (s *Store) SetBluetooth(v BluetoothStatus) {
	cpy := v.DeepCopy()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bluetooth = cpy
}

// GetAudio returns a deep copy of the audio status.
func (s *Store) GetAudio() AudioStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audio.DeepCopy()
}

// SetAudio replaces the audio status. Writer: audio worker.
func (s *Store) SetAudio(v AudioStatus) {
	cpy := v.DeepCopy()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio = cpy
}

// GetNetwork returns a copy of the network info.
func (s *Store) GetNetwork() NetworkInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.network
}

// SetNetwork replaces the network info. Writer: netinfo worker.
func (s *Store) SetNetwork(v NetworkInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.network = v
}

// Snapshot is a point-in-time copy of every field, taken under one lock
// acquisition. Used by the status endpoint and the MQTT status publisher.
type Snapshot struct {
	Settings  Settings        `json:"settings"`
	Theme     Theme           `json:"theme"`
	Weather   WeatherSnapshot `json:"weather"`
	Media     MediaStatus     `json:"media"`
	Bluetooth BluetoothStatus `json:"bluetooth"`
	Audio     AudioStatus     `json:"audio"`
	Network   NetworkInfo     `json:"network"`
}

// GetSnapshot returns a deep copy of the whole store.
func (s *Store) GetSnapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Settings:  s.settings,
		Theme:     s.theme,
		Weather:   s.weather.DeepCopy(),
		Media:     s.media,
		Bluetooth: s.bluetooth.DeepCopy(),
		Audio:     s.audio.DeepCopy(),
		Network:   s.network,
	}
}
