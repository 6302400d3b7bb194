package logbook

import (
	"fmt"
	"time"

	"kioskd/internal/bus"
	"kioskd/internal/infrastructure/logging"
)

// Recorder is the producer facade over the log queue. Workers and handlers
// hold one and call the category helpers; every entry is also mirrored to
// the operational logger so operators see a single stream.
//
// Thread Safety: safe for concurrent use from any number of goroutines.
type Recorder struct {
	queue  *bus.Queue[bus.LogEntry]
	logger *logging.Logger
}

// NewRecorder creates a Recorder publishing to queue and mirroring to
// logger. Both are required.
func NewRecorder(queue *bus.Queue[bus.LogEntry], logger *logging.Logger) (*Recorder, error) {
	if queue == nil {
		return nil, fmt.Errorf("log queue is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Recorder{queue: queue, logger: logger}, nil
}

// Info records routine operational information.
func (r *Recorder) Info(format string, args ...any) {
	r.record(bus.CategoryInfo, format, args...)
}

// Action records a user-visible action the system performed.
func (r *Recorder) Action(format string, args ...any) {
	r.record(bus.CategoryAction, format, args...)
}

// Error records a fault. State is expected to be unchanged by the caller.
func (r *Recorder) Error(format string, args ...any) {
	r.record(bus.CategoryError, format, args...)
}

// API records an inbound request on the control surface.
func (r *Recorder) API(format string, args ...any) {
	r.record(bus.CategoryAPI, format, args...)
}

func (r *Recorder) record(cat bus.Category, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	r.queue.Send(bus.LogEntry{
		Timestamp: time.Now(),
		Category:  cat,
		Message:   msg,
	})

	switch cat {
	case bus.CategoryError:
		r.logger.Error(msg, "category", cat.String())
	case bus.CategoryAPI:
		r.logger.Debug(msg, "category", cat.String())
	default:
		r.logger.Info(msg, "category", cat.String())
	}
}
