package mqtt

import "strings"

// defaultTopicPrefix is used when config carries no prefix.
const defaultTopicPrefix = "kiosk"

// Topics builds the kiosk MQTT topic hierarchy. Using these helpers keeps
// topic naming consistent between the bridge, the LWT configuration, and
// any external integration reading the docs.
//
// The hierarchy is flat:
//
//	<prefix>/command/<command_type>   inbound commands
//	<prefix>/status/<domain>          retained domain status
//	<prefix>/status/online            retained online/offline presence
type Topics struct {
	// Prefix is the topic root, normally from config. Empty means the
	// default "kiosk".
	Prefix string
}

// NewTopics creates a topic builder for the given prefix.
func NewTopics(prefix string) Topics {
	return Topics{Prefix: prefix}
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return defaultTopicPrefix
	}
	return strings.TrimSuffix(t.Prefix, "/")
}

// CommandWildcard returns the subscription pattern covering every inbound
// command topic.
//
// Example: kiosk/command/#
func (t Topics) CommandWildcard() string {
	return t.prefix() + "/command/#"
}

// Command returns the topic a specific command type is published on.
//
// Example: kiosk/command/audio_set_volume
func (t Topics) Command(commandType string) string {
	return t.prefix() + "/command/" + commandType
}

// CommandType extracts the command type from an inbound command topic; ok
// is false for topics outside the command hierarchy.
func (t Topics) CommandType(topic string) (string, bool) {
	base := t.prefix() + "/command/"
	if !strings.HasPrefix(topic, base) {
		return "", false
	}
	rest := strings.TrimPrefix(topic, base)
	if rest == "" || strings.ContainsRune(rest, '/') {
		return "", false
	}
	return rest, true
}

// Status returns the retained status topic for one domain.
//
// Example: kiosk/status/weather
func (t Topics) Status(domain string) string {
	return t.prefix() + "/status/" + domain
}

// Presence returns the retained online/offline topic, also used as the
// Last Will topic.
//
// Example: kiosk/status/online
func (t Topics) Presence() string {
	return t.Status("online")
}
