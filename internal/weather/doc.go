// Package weather owns the weather domain: the OpenWeatherMap client, the
// on-disk snapshot cache, and the worker that keeps the store fresh on the
// configured interval.
//
// The worker never hard-fails: provider faults are journaled and the last
// cached payload is served until the next successful fetch.
package weather
