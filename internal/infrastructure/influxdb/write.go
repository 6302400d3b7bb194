package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteGauge writes a single kiosk state gauge to InfluxDB.
//
// This is the primary method for recording sampled device state.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - domain: The owning subsystem (e.g., "audio", "media", "bluetooth")
//   - gauge: The gauge name (e.g., "volume", "playing")
//   - value: The numeric value to record
//
// Example:
//
//	client.WriteGauge("audio", "volume", 80)
//	client.WriteGauge("media", "playing", 1)
func (c *Client) WriteGauge(domain string, gauge string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"kiosk_state",
		map[string]string{
			"domain": domain,
			"gauge":  gauge,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteLogCounts writes journal entry counts by category.
//
// Used to track how chatty (or how broken) the kiosk is over time.
//
// Parameters:
//   - counts: Entries seen since the last sample, keyed by category name
func (c *Client) WriteLogCounts(counts map[string]int) {
	if !c.IsConnected() || len(counts) == 0 {
		return
	}

	fields := make(map[string]interface{}, len(counts))
	for category, n := range counts {
		fields[category] = n
	}

	point := write.NewPoint("kiosk_log", nil, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("kiosk_system",
//	    map[string]string{"host": "tablepi-01"},
//	    map[string]interface{}{"uptime_seconds": 86400.0})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
