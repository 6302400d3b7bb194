package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testClient(srv *httptest.Server, timeout time.Duration) *Client {
	return &Client{
		baseURL:    srv.URL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func TestClientFetchOK(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"lat":     q.Get("lat"),
			"lon":     q.Get("lon"),
			"appid":   q.Get("appid"),
			"units":   q.Get("units"),
			"exclude": q.Get("exclude"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"current":{"temp":72.5},"daily":[]}`))
	}))
	defer srv.Close()

	c := testClient(srv, requestTimeout)
	res := c.Fetch(context.Background(), Query{
		Lat:    40.7128,
		Lon:    -74.006,
		APIKey: "k123",
		Units:  "imperial",
	})

	if res.Status != StatusOK {
		t.Fatalf("Status = %v, want StatusOK (err: %v)", res.Status, res.Err)
	}
	if !res.OK() {
		t.Error("OK() = false, want true")
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", res.StatusCode)
	}

	want := map[string]string{
		"lat":     "40.7128",
		"lon":     "-74.006",
		"appid":   "k123",
		"units":   "imperial",
		"exclude": "minutely,alerts",
	}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}

	current, ok := res.Data["current"].(map[string]any)
	if !ok {
		t.Fatalf("Data missing current block: %#v", res.Data)
	}
	if current["temp"] != 72.5 {
		t.Errorf("current.temp = %v, want 72.5", current["temp"])
	}
}

func TestClientFetchClassifiesHTTPFailures(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantStatus Status
		wantMsg    string
	}{
		{"invalid key", http.StatusUnauthorized, StatusInvalidKey, "Weather API: Invalid API key"},
		{"rate limited", http.StatusTooManyRequests, StatusRateLimited, "Weather API: Rate limit exceeded"},
		{"server error", http.StatusInternalServerError, StatusHTTPError, "Weather API: HTTP 500"},
		{"not found", http.StatusNotFound, StatusHTTPError, "Weather API: HTTP 404"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer srv.Close()

			res := testClient(srv, requestTimeout).Fetch(context.Background(), Query{Lat: 1, Lon: 1, APIKey: "k", Units: "metric"})

			if res.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", res.Status, tt.wantStatus)
			}
			if res.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %d, want %d", res.StatusCode, tt.statusCode)
			}
			if got := res.Message(); got != tt.wantMsg {
				t.Errorf("Message() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestClientFetchMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current": `))
	}))
	defer srv.Close()

	res := testClient(srv, requestTimeout).Fetch(context.Background(), Query{Lat: 1, Lon: 1, APIKey: "k", Units: "metric"})

	if res.Status != StatusFailed {
		t.Fatalf("Status = %v, want StatusFailed", res.Status)
	}
	if res.Err == nil {
		t.Error("Err = nil, want decode error")
	}
	if !strings.HasPrefix(res.Message(), "Weather fetch failed:") {
		t.Errorf("Message() = %q, want Weather fetch failed prefix", res.Message())
	}
}

func TestClientFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	res := testClient(srv, 30*time.Millisecond).Fetch(context.Background(), Query{Lat: 1, Lon: 1, APIKey: "k", Units: "metric"})

	if res.Status != StatusTimeout {
		t.Fatalf("Status = %v, want StatusTimeout (err: %v)", res.Status, res.Err)
	}
	if got := res.Message(); got != "Weather API: Request timeout" {
		t.Errorf("Message() = %q", got)
	}
}

func TestClientFetchConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	res := testClient(srv, requestTimeout).Fetch(context.Background(), Query{Lat: 1, Lon: 1, APIKey: "k", Units: "metric"})

	if res.Status != StatusConnectionError {
		t.Fatalf("Status = %v, want StatusConnectionError (err: %v)", res.Status, res.Err)
	}
	if got := res.Message(); got != "Weather API: Connection error" {
		t.Errorf("Message() = %q", got)
	}
}

func TestClientFetchCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := testClient(srv, requestTimeout).Fetch(ctx, Query{Lat: 1, Lon: 1, APIKey: "k", Units: "metric"})

	if res.Status != StatusCanceled {
		t.Fatalf("Status = %v, want StatusCanceled (err: %v)", res.Status, res.Err)
	}
}
