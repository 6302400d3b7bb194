package telemetry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"kioskd/internal/bus"
	"kioskd/internal/dimmer"
	"kioskd/internal/infrastructure/logging"
	"kioskd/internal/state"
)

// DefaultInterval is the sample cadence when config gives none.
const DefaultInterval = 30 * time.Second

// Writer is the subset of the InfluxDB client the sampler needs.
type Writer interface {
	WriteGauge(domain string, gauge string, value float64)
	WriteLogCounts(counts map[string]int)
}

// Deps holds the dependencies required by the sampler.
type Deps struct {
	// Store is the shared state store the gauges are read from. Required.
	Store *state.Store

	// Writer receives the sampled points. Required.
	Writer Writer

	// Interval overrides the sample cadence. Zero means DefaultInterval.
	Interval time.Duration

	// Logger is the operational logger. Required.
	Logger *logging.Logger
}

// Sampler periodically records state gauges and journal counts.
//
// Register it as a logbook sink so category counts are tallied; Start
// launches the sample loop and Close stops it, flushing one final sample.
type Sampler struct {
	store    *state.Store
	writer   Writer
	interval time.Duration
	logger   *logging.Logger

	mu     sync.Mutex
	counts map[string]int

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a sampler from deps. The sample loop does not run until Start
// is called.
func New(deps Deps) (*Sampler, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if deps.Writer == nil {
		return nil, fmt.Errorf("telemetry writer is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	interval := deps.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Sampler{
		store:    deps.Store,
		writer:   deps.Writer,
		interval: interval,
		logger:   deps.Logger.With("component", "telemetry"),
		counts:   make(map[string]int),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Publish tallies a journal entry by category. Implements logbook.Sink.
func (s *Sampler) Publish(entry bus.LogEntry) {
	s.mu.Lock()
	s.counts[strings.ToLower(entry.Category.String())]++
	s.mu.Unlock()
}

// Start launches the sample loop. It returns immediately.
func (s *Sampler) Start() {
	s.wg.Add(1)
	go s.run()

	s.logger.Info("telemetry sampling started", "interval", s.interval)
}

// Close stops the sample loop and records one final sample. Safe to call
// more than once.
func (s *Sampler) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		s.Sample(time.Now())
		s.logger.Info("telemetry sampling stopped")
	})
}

func (s *Sampler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			s.Sample(now)
		}
	}
}

// Sample records one round of gauges and drains the journal counts. It is
// exported so shutdown (and tests) can force a sample outside the loop.
func (s *Sampler) Sample(now time.Time) {
	audio := s.store.GetAudio()
	s.writer.WriteGauge("audio", "volume", float64(audio.Volume))

	media := s.store.GetMedia()
	s.writer.WriteGauge("media", "playing", boolGauge(media.Playing))
	s.writer.WriteGauge("media", "paused", boolGauge(media.Paused))
	if media.Playing {
		s.writer.WriteGauge("media", "position_seconds", media.Position)
	}

	bt := s.store.GetBluetooth()
	s.writer.WriteGauge("bluetooth", "connected", boolGauge(bt.Connected))
	s.writer.WriteGauge("bluetooth", "discovered", float64(len(bt.Discovered)))

	if ds := s.store.GetSettings().Dimming; ds.Enabled {
		if sched, err := dimmer.ParseSchedule(ds); err == nil {
			s.writer.WriteGauge("dimming", "brightness_target", float64(sched.TargetPercent(now)))
		}
	}

	if weather := s.store.GetWeather(); weather.FetchedAt != nil {
		age := now.Sub(*weather.FetchedAt).Seconds()
		if age < 0 {
			age = 0
		}
		s.writer.WriteGauge("weather", "age_seconds", age)
	}

	s.mu.Lock()
	counts := s.counts
	s.counts = make(map[string]int)
	s.mu.Unlock()

	s.writer.WriteLogCounts(counts)
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
