// Package bluetooth owns the speaker link: auto-connect at startup,
// connect/disconnect/pair/remove commands, discovery scans, and a periodic
// probe that notices when the link drops without any command being issued.
// All bluetoothctl calls in the process go through here.
package bluetooth
