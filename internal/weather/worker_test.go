package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"kioskd/internal/bus"
	"kioskd/internal/infrastructure/config"
	"kioskd/internal/infrastructure/logging"
	"kioskd/internal/logbook"
	"kioskd/internal/state"
)

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test")
}

// countedHandler counts requests so tests can assert whether a tick or
// command actually reached the provider.
type countedHandler struct {
	n     atomic.Int32
	inner http.HandlerFunc
}

func (h *countedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.n.Add(1)
	h.inner(w, r)
}

func jsonOK(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func httpStatus(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}
}

type workerFixture struct {
	t        *testing.T
	worker   *Worker
	store    *state.Store
	updates  *bus.Queue[bus.WeatherUpdate]
	logQ     *bus.Queue[bus.LogEntry]
	cacheDir string
	handler  *countedHandler
}

func newWorkerFixture(t *testing.T, inner http.HandlerFunc, mutate func(*state.Settings)) *workerFixture {
	t.Helper()

	handler := &countedHandler{inner: inner}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := state.New()
	settings := state.Settings{
		Weather: state.WeatherSettings{
			APIKey:                "k123",
			Lat:                   40.7128,
			Lon:                   -74.006,
			Units:                 "imperial",
			UpdateIntervalMinutes: 30,
		},
	}
	if mutate != nil {
		mutate(&settings)
	}
	store.SetSettings(settings)

	updates := bus.NewQueue[bus.WeatherUpdate]()
	logQ := bus.NewQueue[bus.LogEntry]()
	recorder, err := logbook.NewRecorder(logQ, testLogger())
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	cacheDir := t.TempDir()
	w, err := New(Deps{
		Store:    store,
		Updates:  updates,
		Recorder: recorder,
		CacheDir: cacheDir,
		Client:   testClient(srv, requestTimeout),
		Logger:   testLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return &workerFixture{
		t:        t,
		worker:   w,
		store:    store,
		updates:  updates,
		logQ:     logQ,
		cacheDir: cacheDir,
		handler:  handler,
	}
}

// seedCache writes a snapshot file before the worker starts.
func (f *workerFixture) seedCache(payload map[string]any) {
	f.t.Helper()
	if err := NewCache(f.cacheDir).Save(payload); err != nil {
		f.t.Fatalf("seeding cache: %v", err)
	}
}

func (f *workerFixture) requests() int32 {
	return f.handler.n.Load()
}

func drainUpdates(q *bus.Queue[bus.WeatherUpdate]) []bus.WeatherUpdate {
	var out []bus.WeatherUpdate
	for {
		u, ok := q.TryReceive()
		if !ok {
			return out
		}
		out = append(out, u)
	}
}

func drainLog(q *bus.Queue[bus.LogEntry]) []bus.LogEntry {
	var out []bus.LogEntry
	for {
		e, ok := q.TryReceive()
		if !ok {
			return out
		}
		out = append(out, e)
	}
}

func filterMessages(entries []bus.LogEntry, cat bus.Category) []string {
	var out []string
	for _, e := range entries {
		if e.Category == cat {
			out = append(out, e.Message)
		}
	}
	return out
}

func countMessage(msgs []string, want string) int {
	n := 0
	for _, m := range msgs {
		if m == want {
			n++
		}
	}
	return n
}

func hasPrefix(msgs []string, prefix string) bool {
	for _, m := range msgs {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

func TestWorkerNewValidation(t *testing.T) {
	store := state.New()
	updates := bus.NewQueue[bus.WeatherUpdate]()
	logQ := bus.NewQueue[bus.LogEntry]()
	recorder, err := logbook.NewRecorder(logQ, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	valid := func() Deps {
		return Deps{
			Store:    store,
			Updates:  updates,
			Recorder: recorder,
			CacheDir: t.TempDir(),
			Logger:   testLogger(),
		}
	}

	if _, err := New(valid()); err != nil {
		t.Fatalf("valid deps rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Deps)
	}{
		{"nil store", func(d *Deps) { d.Store = nil }},
		{"nil updates queue", func(d *Deps) { d.Updates = nil }},
		{"nil recorder", func(d *Deps) { d.Recorder = nil }},
		{"empty cache dir", func(d *Deps) { d.CacheDir = "" }},
		{"nil logger", func(d *Deps) { d.Logger = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := valid()
			tt.mutate(&deps)
			if _, err := New(deps); err == nil {
				t.Error("New succeeded, want error")
			}
		})
	}
}

func TestWorkerStartupSeedsCacheThenFetches(t *testing.T) {
	f := newWorkerFixture(t, jsonOK(`{"src":"live"}`), nil)
	f.seedCache(map[string]any{"src": "cache"})

	f.worker.Startup(context.Background())

	updates := drainUpdates(f.updates)
	if len(updates) != 2 {
		t.Fatalf("got %d updates, want 2 (cache seed then fetch)", len(updates))
	}
	if updates[0].Data["src"] != "cache" {
		t.Errorf("first update = %v, want cache payload", updates[0].Data)
	}
	if updates[1].Data["src"] != "live" {
		t.Errorf("second update = %v, want live payload", updates[1].Data)
	}

	snap := f.store.GetWeather()
	if snap.Data["src"] != "live" {
		t.Errorf("store data = %v, want live payload", snap.Data)
	}
	if snap.FetchedAt == nil {
		t.Error("FetchedAt is nil after successful fetch")
	}

	entries := drainLog(f.logQ)
	infos := filterMessages(entries, bus.CategoryInfo)
	if countMessage(infos, "Weather service started") != 1 {
		t.Errorf("missing start entry, infos: %v", infos)
	}
	if countMessage(infos, "Loaded weather from cache") != 1 {
		t.Errorf("missing cache load entry, infos: %v", infos)
	}
	if !hasPrefix(filterMessages(entries, bus.CategoryAPI), "Weather fetch OK (") {
		t.Error("missing fetch OK entry")
	}

	// The fetch result replaces the cached snapshot on disk.
	data, _, err := NewCache(f.cacheDir).Load()
	if err != nil {
		t.Fatalf("reloading cache: %v", err)
	}
	if data["src"] != "live" {
		t.Errorf("cache data = %v, want live payload", data)
	}
}

func TestWorkerStartupWithoutCache(t *testing.T) {
	f := newWorkerFixture(t, jsonOK(`{"src":"live"}`), nil)

	f.worker.Startup(context.Background())

	updates := drainUpdates(f.updates)
	if len(updates) != 1 {
		t.Fatalf("got %d updates, want 1", len(updates))
	}
	if updates[0].Data["src"] != "live" {
		t.Errorf("update = %v, want live payload", updates[0].Data)
	}

	infos := filterMessages(drainLog(f.logQ), bus.CategoryInfo)
	if countMessage(infos, "Loaded weather from cache") != 0 {
		t.Error("cache load entry present with no cache file")
	}
}

func TestWorkerFetchFailureFallsBackToCache(t *testing.T) {
	f := newWorkerFixture(t, httpStatus(http.StatusInternalServerError), nil)

	// Hand-written snapshot with a known fetch time, so the seeded store
	// reports the true age of the data.
	cachePath := filepath.Join(f.cacheDir, cacheFileName)
	raw := `{"fetched_at":"2026-01-02T15:04:05Z","data":{"src":"cache"}}`
	if err := os.WriteFile(cachePath, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	f.worker.Startup(context.Background())

	updates := drainUpdates(f.updates)
	if len(updates) != 2 {
		t.Fatalf("got %d updates, want 2 (startup seed, failure fallback)", len(updates))
	}
	for i, u := range updates {
		if u.Data["src"] != "cache" {
			t.Errorf("update %d = %v, want cache payload", i, u.Data)
		}
	}

	snap := f.store.GetWeather()
	if snap.Data["src"] != "cache" {
		t.Errorf("store data = %v, want cache payload", snap.Data)
	}
	want := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	if snap.FetchedAt == nil || !snap.FetchedAt.Equal(want) {
		t.Errorf("FetchedAt = %v, want cached fetch time %v", snap.FetchedAt, want)
	}

	errors := filterMessages(drainLog(f.logQ), bus.CategoryError)
	if countMessage(errors, "Weather API: HTTP 500") != 1 {
		t.Errorf("errors = %v, want one HTTP 500 entry", errors)
	}
}

func TestWorkerFetchFailureWithoutCache(t *testing.T) {
	f := newWorkerFixture(t, httpStatus(http.StatusInternalServerError), nil)

	f.worker.Startup(context.Background())

	if updates := drainUpdates(f.updates); len(updates) != 0 {
		t.Errorf("got %d updates, want 0", len(updates))
	}
	if data := f.store.GetWeather().Data; data != nil {
		t.Errorf("store data = %v, want nil", data)
	}
	errors := filterMessages(drainLog(f.logQ), bus.CategoryError)
	if countMessage(errors, "Weather API: HTTP 500") != 1 {
		t.Errorf("errors = %v, want one HTTP 500 entry", errors)
	}
}

func TestWorkerMissingKeyLogsOnce(t *testing.T) {
	f := newWorkerFixture(t, jsonOK(`{"src":"live"}`), func(s *state.Settings) {
		s.Weather.APIKey = ""
	})
	ctx := context.Background()

	f.worker.Startup(ctx)
	f.worker.Tick(ctx)
	f.worker.Tick(ctx)
	f.worker.Tick(ctx)

	if n := f.requests(); n != 0 {
		t.Fatalf("provider called %d times with no key, want 0", n)
	}
	errors := filterMessages(drainLog(f.logQ), bus.CategoryError)
	if countMessage(errors, "Weather API key not configured") != 1 {
		t.Fatalf("errors = %v, want exactly one missing-key entry", errors)
	}

	// Configuring the key is picked up on the next tick, not after a full
	// interval.
	settings := f.store.GetSettings()
	settings.Weather.APIKey = "k123"
	f.store.SetSettings(settings)

	f.worker.Tick(ctx)
	if n := f.requests(); n != 1 {
		t.Fatalf("provider called %d times after key configured, want 1", n)
	}

	// Losing the key again logs a fresh entry once the interval gate allows
	// another attempt.
	settings.Weather.APIKey = ""
	f.store.SetSettings(settings)
	f.worker.lastAttempt = time.Now().Add(-31 * time.Minute)

	f.worker.Tick(ctx)
	f.worker.Tick(ctx)

	errors = filterMessages(drainLog(f.logQ), bus.CategoryError)
	if countMessage(errors, "Weather API key not configured") != 1 {
		t.Errorf("errors = %v, want one missing-key entry after key removed", errors)
	}
}

func TestWorkerMissingLocationLogged(t *testing.T) {
	f := newWorkerFixture(t, jsonOK(`{"src":"live"}`), func(s *state.Settings) {
		s.Weather.Lat = 0
		s.Weather.Lon = 0
	})

	f.worker.Startup(context.Background())

	if n := f.requests(); n != 0 {
		t.Fatalf("provider called %d times with no location, want 0", n)
	}
	errors := filterMessages(drainLog(f.logQ), bus.CategoryError)
	if countMessage(errors, "Weather location not configured") != 1 {
		t.Errorf("errors = %v, want one missing-location entry", errors)
	}
}

func TestWorkerTickHonorsInterval(t *testing.T) {
	f := newWorkerFixture(t, jsonOK(`{"src":"live"}`), nil)
	ctx := context.Background()

	f.worker.Startup(ctx)
	if n := f.requests(); n != 1 {
		t.Fatalf("requests after startup = %d, want 1", n)
	}

	f.worker.Tick(ctx)
	if n := f.requests(); n != 1 {
		t.Errorf("tick inside interval fetched (requests = %d)", n)
	}

	f.worker.lastAttempt = time.Now().Add(-31 * time.Minute)
	f.worker.Tick(ctx)
	if n := f.requests(); n != 2 {
		t.Errorf("tick past interval did not fetch (requests = %d)", n)
	}

	// A zero interval fetches on every tick.
	settings := f.store.GetSettings()
	settings.Weather.UpdateIntervalMinutes = 0
	f.store.SetSettings(settings)

	f.worker.Tick(ctx)
	f.worker.Tick(ctx)
	if n := f.requests(); n != 4 {
		t.Errorf("zero interval requests = %d, want 4", n)
	}

	// Negative values clamp to zero rather than wedging the worker.
	settings.Weather.UpdateIntervalMinutes = -5
	f.store.SetSettings(settings)

	f.worker.Tick(ctx)
	if n := f.requests(); n != 5 {
		t.Errorf("negative interval requests = %d, want 5", n)
	}
}

func TestWorkerRefreshCommandPreempts(t *testing.T) {
	f := newWorkerFixture(t, jsonOK(`{"src":"live"}`), nil)
	ctx := context.Background()

	f.worker.Startup(ctx)
	f.worker.HandleCommand(ctx, bus.NewCommand(bus.CmdWeatherRefresh))

	if n := f.requests(); n != 2 {
		t.Fatalf("requests after refresh = %d, want 2", n)
	}

	// The refresh restarts the interval; the following tick stays quiet.
	f.worker.Tick(ctx)
	if n := f.requests(); n != 2 {
		t.Errorf("tick after refresh fetched (requests = %d)", n)
	}
}

func TestWorkerIgnoresForeignCommand(t *testing.T) {
	f := newWorkerFixture(t, jsonOK(`{"src":"live"}`), nil)

	f.worker.HandleCommand(context.Background(), bus.NewCommand(bus.CmdAudioRefresh))

	if n := f.requests(); n != 0 {
		t.Errorf("foreign command triggered a fetch (requests = %d)", n)
	}
	if errors := filterMessages(drainLog(f.logQ), bus.CategoryError); len(errors) != 0 {
		t.Errorf("foreign command logged errors: %v", errors)
	}
}

func TestWorkerCacheWriteFailureStillServes(t *testing.T) {
	f := newWorkerFixture(t, jsonOK(`{"src":"live"}`), nil)

	// A directory squatting on the snapshot path makes every write fail.
	if err := os.Mkdir(filepath.Join(f.cacheDir, cacheFileName), 0o755); err != nil {
		t.Fatal(err)
	}

	f.worker.Startup(context.Background())

	if f.store.GetWeather().Data["src"] != "live" {
		t.Error("fetched data not stored despite cache failure")
	}
	if updates := drainUpdates(f.updates); len(updates) != 1 {
		t.Errorf("got %d updates, want 1", len(updates))
	}

	entries := drainLog(f.logQ)
	if !hasPrefix(filterMessages(entries, bus.CategoryError), "Failed to save weather cache:") {
		t.Error("missing cache save failure entry")
	}
	if !hasPrefix(filterMessages(entries, bus.CategoryAPI), "Weather fetch OK (") {
		t.Error("missing fetch OK entry")
	}
}
