package api

import (
	"context"
	"time"

	"kioskd/internal/bus"
)

// pumpPoll paces the queue consume loops so shutdown is noticed even when
// no events arrive.
const pumpPoll = 500 * time.Millisecond

// startEventPump launches the consumers that turn queue traffic into
// WebSocket broadcasts. The server is the single consumer of the weather
// and config-reload queues.
func (s *Server) startEventPump(ctx context.Context) {
	if s.weather != nil {
		go s.pumpWeather(ctx)
	}
	if s.reload != nil {
		go s.pumpReload(ctx)
	}
}

func (s *Server) pumpWeather(ctx context.Context) {
	for {
		update, ok := s.weather.Receive(pumpPoll)
		if ctx.Err() != nil {
			return
		}
		if !ok {
			continue
		}
		s.hub.Broadcast(EventWeatherUpdated, update.Data)
	}
}

func (s *Server) pumpReload(ctx context.Context) {
	for {
		_, ok := s.reload.Receive(pumpPoll)
		if ctx.Err() != nil {
			return
		}
		if !ok {
			continue
		}
		// Payload is the refreshed settings and theme; consumers re-read
		// rather than diff.
		s.hub.Broadcast(EventConfigReloaded, map[string]any{
			"settings": s.store.GetSettings(),
			"theme":    s.store.GetTheme(),
		})
	}
}

// Publish broadcasts one journal entry to WebSocket clients. Implements
// logbook.Sink; the aggregator calls it for every consumed entry.
func (s *Server) Publish(entry bus.LogEntry) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(EventLogEntry, entry)
}
