// Package mqttbridge connects the kiosk command and status surfaces to an
// MQTT broker.
//
// Inbound, it subscribes to <prefix>/command/# and translates each message
// into a validated command on the shared command queue; the topic's final
// segment names the command type and the JSON payload carries the
// parameters. Outbound, it publishes a retained per-domain status document
// under <prefix>/status/ on a fixed cadence, so late subscribers always see
// the current state.
//
// The bridge is optional: when MQTT is disabled in config it is simply
// never constructed.
package mqttbridge
