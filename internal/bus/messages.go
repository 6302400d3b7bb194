package bus

import (
	"encoding/json"
	"strings"
	"time"
)

// Category classifies a log entry.
type Category int

const (
	// CategoryInfo is routine operational information.
	CategoryInfo Category = iota
	// CategoryAction is a user-visible action the system performed.
	CategoryAction
	// CategoryError is a fault that left state unchanged.
	CategoryError
	// CategoryAPI is an inbound request on the control surface.
	CategoryAPI
)

// String returns the name used in log files and JSON.
func (c Category) String() string {
	switch c {
	case CategoryAction:
		return "Action"
	case CategoryError:
		return "Error"
	case CategoryAPI:
		return "API"
	default:
		return "Info"
	}
}

// ParseCategory maps a name back to a Category. Matching is
// case-insensitive; unknown names return CategoryInfo and false.
func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(s) {
	case "info":
		return CategoryInfo, true
	case "action":
		return CategoryAction, true
	case "error":
		return CategoryError, true
	case "api":
		return CategoryAPI, true
	default:
		return CategoryInfo, false
	}
}

// MarshalJSON encodes the category as its name.
func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a category name; unknown names become INFO.
func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, _ := ParseCategory(s)
	*c = parsed
	return nil
}

// LogEntry is one immutable kiosk event. Enqueue order is preserved end to
// end: the log queue has a single consumer and is strictly FIFO.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Category  Category  `json:"category"`
	Message   string    `json:"message"`
}

// WeatherUpdate is published on the weather queue after every successful
// fetch. Data is the provider-shaped payload, the same value stored in the
// state store.
type WeatherUpdate struct {
	Data map[string]any `json:"data"`
}

// ReloadNotice is published on the configReload queue after the settings
// document has been replaced in the store. It carries no payload; consumers
// re-read settings and theme from the store.
type ReloadNotice struct{}

// Channels bundles the four queues the daemon runs on. Constructed once in
// main and passed by handle; each queue has exactly one consumer:
//
//	Weather      → API event pump (WebSocket broadcast)
//	ConfigReload → API event pump
//	Command      → worker supervisor
//	Log          → logbook aggregator
type Channels struct {
	Weather      *Queue[WeatherUpdate]
	ConfigReload *Queue[ReloadNotice]
	Command      *Queue[Command]
	Log          *Queue[LogEntry]
}

// NewChannels creates the four queues.
func NewChannels() *Channels {
	return &Channels{
		Weather:      NewQueue[WeatherUpdate](),
		ConfigReload: NewQueue[ReloadNotice](),
		Command:      NewQueue[Command](),
		Log:          NewQueue[LogEntry](),
	}
}

// Close closes all four queues. Called once at shutdown after producers
// have stopped.
func (c *Channels) Close() {
	c.Weather.Close()
	c.ConfigReload.Close()
	c.Command.Close()
	c.Log.Close()
}
