package weather

import (
	"context"
	"fmt"
	"time"

	"kioskd/internal/bus"
	"kioskd/internal/infrastructure/logging"
	"kioskd/internal/logbook"
	"kioskd/internal/state"
)

// waitTimeout is the inbox wait. It is also the cadence at which the worker
// re-reads the fetch interval from settings, so interval changes take effect
// within ten seconds without a restart.
const waitTimeout = 10 * time.Second

// Deps carries the collaborators the worker needs.
type Deps struct {
	// Store holds the weather snapshot and the live settings.
	Store *state.Store

	// Updates receives a WeatherUpdate after every store write.
	Updates *bus.Queue[bus.WeatherUpdate]

	// Recorder is the kiosk event journal.
	Recorder *logbook.Recorder

	// CacheDir is the directory holding the snapshot cache.
	CacheDir string

	// Client overrides the production API client. Nil means NewClient().
	Client *Client

	// Logger is the operational logger.
	Logger *logging.Logger
}

// Worker owns the weather field of the store. It fetches provider data on
// the configured interval, persists each success to the cache, and falls
// back to the cache when the provider is unreachable.
//
// All methods run on the single runner goroutine; no locking is needed.
type Worker struct {
	store    *state.Store
	updates  *bus.Queue[bus.WeatherUpdate]
	recorder *logbook.Recorder
	client   *Client
	cache    *Cache
	logger   *logging.Logger

	// lastAttempt gates the periodic fetch. Zero means no attempt yet; it is
	// stamped after every completed call, success or failure, so a broken
	// provider is retried once per interval rather than every loop.
	lastAttempt time.Time

	// misconfigLogged suppresses repeat complaints while the API key or
	// location stays unset. Cleared as soon as the settings are usable.
	misconfigLogged bool
}

// New creates the worker. All dependencies except Client are required.
func New(deps Deps) (*Worker, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Updates == nil {
		return nil, fmt.Errorf("updates queue is required")
	}
	if deps.Recorder == nil {
		return nil, fmt.Errorf("recorder is required")
	}
	if deps.CacheDir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	client := deps.Client
	if client == nil {
		client = NewClient()
	}

	return &Worker{
		store:    deps.Store,
		updates:  deps.Updates,
		recorder: deps.Recorder,
		client:   client,
		cache:    NewCache(deps.CacheDir),
		logger:   deps.Logger.With("component", "weather"),
	}, nil
}

// Name implements worker.Worker.
func (w *Worker) Name() string {
	return "weather"
}

// WaitTimeout implements worker.Worker.
func (w *Worker) WaitTimeout() time.Duration {
	return waitTimeout
}

// Startup seeds the store from the cache before any network call, so
// consumers never see an empty state if a prior run succeeded, then tries a
// first fetch immediately.
func (w *Worker) Startup(ctx context.Context) {
	w.recorder.Info("Weather service started")
	w.loadCache()
	w.attempt(ctx)
}

// HandleCommand implements worker.Worker. A refresh preempts the interval
// wait and fetches now.
func (w *Worker) HandleCommand(ctx context.Context, cmd bus.Command) {
	switch cmd.Type {
	case bus.CmdWeatherRefresh:
		w.attempt(ctx)
	default:
		w.logger.Debug("ignoring command", "type", string(cmd.Type))
	}
}

// Tick fetches when the configured interval has elapsed since the last
// attempt. The interval is re-read from settings every cycle.
func (w *Worker) Tick(ctx context.Context) {
	minutes := w.store.GetSettings().Weather.UpdateIntervalMinutes
	if minutes < 0 {
		minutes = 0
	}
	interval := time.Duration(minutes) * time.Minute

	if w.lastAttempt.IsZero() || time.Since(w.lastAttempt) >= interval {
		w.attempt(ctx)
	}
}

// Shutdown implements worker.Worker.
func (w *Worker) Shutdown(context.Context) {
	w.client.CloseIdleConnections()
}

// attempt runs one fetch against the current settings and applies the
// outcome. Misconfiguration does not count as an attempt: corrected settings
// are picked up on the next tick rather than after a full interval.
func (w *Worker) attempt(ctx context.Context) {
	ws := w.store.GetSettings().Weather

	if ws.APIKey == "" {
		w.misconfigured("Weather API key not configured")
		return
	}
	if ws.Lat == 0 && ws.Lon == 0 {
		w.misconfigured("Weather location not configured")
		return
	}
	w.misconfigLogged = false

	res := w.client.Fetch(ctx, Query{
		Lat:    ws.Lat,
		Lon:    ws.Lon,
		APIKey: ws.APIKey,
		Units:  ws.Units,
	})
	if res.Status == StatusCanceled {
		return
	}
	w.lastAttempt = time.Now()

	if !res.OK() {
		w.recorder.Error("%s", res.Message())
		w.loadCache()
		return
	}

	now := time.Now()
	w.store.SetWeather(state.WeatherSnapshot{FetchedAt: &now, Data: res.Data})
	w.updates.Send(bus.WeatherUpdate{Data: res.Data})

	if err := w.cache.Save(res.Data); err != nil {
		w.recorder.Error("Failed to save weather cache: %v", err)
	}

	w.recorder.API("Weather fetch OK (%dms)", res.Elapsed.Milliseconds())
}

// misconfigured records the fault once per transition into the unconfigured
// state. The cache fallback only runs when the store is still empty; after
// the startup seed there is nothing new to load.
func (w *Worker) misconfigured(msg string) {
	if w.misconfigLogged {
		return
	}
	w.misconfigLogged = true
	w.recorder.Error("%s", msg)

	if w.store.GetWeather().Data == nil {
		w.loadCache()
	}
}

// loadCache seeds the store and the update channel from the snapshot file.
// A missing cache is silent; a corrupt one is reported.
func (w *Worker) loadCache() {
	data, fetchedAt, err := w.cache.Load()
	if err != nil {
		w.recorder.Error("Failed to load weather cache: %v", err)
		return
	}
	if data == nil {
		return
	}

	snap := state.WeatherSnapshot{Data: data}
	if !fetchedAt.IsZero() {
		ts := fetchedAt
		snap.FetchedAt = &ts
	}

	w.store.SetWeather(snap)
	w.updates.Send(bus.WeatherUpdate{Data: data})
	w.recorder.Info("Loaded weather from cache")
}
