// Package mediaplayer owns video playback: it runs a single mpv process at
// a time, drives it over its JSON IPC socket, and keeps the playback status
// in the store current while the process lives.
package mediaplayer
