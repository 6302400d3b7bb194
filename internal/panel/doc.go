// Package panel serves the embedded kiosk control panel.
//
// The panel is a single static page (plain DOM, no framework) that talks
// to the REST API and the /ws event stream: status cards for weather,
// playback, audio, bluetooth and network, the controls that drive them,
// and a live journal tail.
//
// Assets are compiled in via go:embed; a filesystem directory can override
// them during development so edits show up without a rebuild. Requests for
// missing files fall back to index.html so the page owns its own routing.
package panel
