// Package telemetry samples kiosk state into InfluxDB.
//
// The sampler wakes on a fixed interval, reads the shared state store and
// writes one gauge per tracked value (audio volume, playback state,
// bluetooth link, scheduled brightness, weather age). It also implements logbook.Sink so journal
// entry counts per category accompany each sample.
//
// When InfluxDB is disabled the sampler is simply never constructed; there
// is no internal enabled flag.
package telemetry
