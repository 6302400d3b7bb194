// Package influxdb provides InfluxDB connectivity for kioskd.
//
// It wraps the official influxdb-client-go v2 library with kioskd-specific
// patterns for connection management, gauge writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Sampled kiosk state gauges (volume, brightness, playback)
//   - Journal entry counts by category
//   - Ad-hoc system measurements
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "kiosk",
//	    Bucket: "telemetry",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Write state gauges
//	client.WriteGauge("audio", "volume", 80)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for high-frequency sampling.
package influxdb
