package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// apiURL is the OpenWeatherMap One Call 3.0 endpoint.
const apiURL = "https://api.openweathermap.org/data/3.0/onecall"

// requestTimeout bounds one fetch end to end. The provider normally answers
// in well under a second; anything past this is treated as a timeout.
const requestTimeout = 30 * time.Second

// Status classifies how a fetch ended.
type Status int

const (
	// StatusOK means the provider returned a decodable payload.
	StatusOK Status = iota
	// StatusInvalidKey means the provider rejected the API key (HTTP 401).
	StatusInvalidKey
	// StatusRateLimited means the provider throttled the call (HTTP 429).
	StatusRateLimited
	// StatusHTTPError is any other non-2xx response.
	StatusHTTPError
	// StatusTimeout means the request exceeded the client timeout.
	StatusTimeout
	// StatusConnectionError means the provider could not be reached.
	StatusConnectionError
	// StatusFailed means the call completed but the payload was unusable.
	StatusFailed
	// StatusCanceled means the surrounding context was canceled before the
	// call finished. Callers treat it as shutdown, not as a fault.
	StatusCanceled
)

// Query carries the fetch parameters, taken from the live weather settings
// immediately before each call.
type Query struct {
	Lat    float64
	Lon    float64
	APIKey string
	Units  string
}

// Result is the complete outcome of one fetch. Failures come back as values
// rather than errors so the worker applies a single policy: record the
// fault, fall back to the cache, retry on the next interval.
type Result struct {
	Status Status

	// Data is the decoded provider payload. Set only for StatusOK.
	Data map[string]any

	// StatusCode is the HTTP status, when a response was received at all.
	StatusCode int

	// Elapsed is the wall time of the call, for the fetch log entry.
	Elapsed time.Duration

	// Err is the underlying error for non-OK outcomes, for logging only.
	Err error
}

// OK reports whether the fetch produced a fresh payload.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Message returns the journal wording for a failed fetch.
func (r Result) Message() string {
	switch r.Status {
	case StatusInvalidKey:
		return "Weather API: Invalid API key"
	case StatusRateLimited:
		return "Weather API: Rate limit exceeded"
	case StatusHTTPError:
		return fmt.Sprintf("Weather API: HTTP %d", r.StatusCode)
	case StatusTimeout:
		return "Weather API: Request timeout"
	case StatusConnectionError:
		return "Weather API: Connection error"
	default:
		return fmt.Sprintf("Weather fetch failed: %v", r.Err)
	}
}

// Client fetches current conditions and forecast from OpenWeatherMap.
//
// Thread Safety: safe for concurrent use, though the weather worker is the
// only caller in practice.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client against the production endpoint.
func NewClient() *Client {
	return &Client{
		baseURL:    apiURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Fetch performs one One Call request. The minutely and alert blocks are
// excluded; the kiosk renders neither.
func (c *Client) Fetch(ctx context.Context, q Query) Result {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(q.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(q.Lon, 'f', -1, 64))
	params.Set("appid", q.APIKey)
	params.Set("units", q.Units)
	params.Set("exclude", "minutely,alerts")

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Result{Status: StatusFailed, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return Result{Status: classifyTransport(err), Elapsed: elapsed, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Status: classifyTransport(err), StatusCode: resp.StatusCode, Elapsed: elapsed, Err: err}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var data map[string]any
		if err := json.Unmarshal(body, &data); err != nil {
			return Result{Status: StatusFailed, StatusCode: resp.StatusCode, Elapsed: elapsed, Err: err}
		}
		return Result{Status: StatusOK, Data: data, StatusCode: resp.StatusCode, Elapsed: elapsed}
	case http.StatusUnauthorized:
		return Result{Status: StatusInvalidKey, StatusCode: resp.StatusCode, Elapsed: elapsed}
	case http.StatusTooManyRequests:
		return Result{Status: StatusRateLimited, StatusCode: resp.StatusCode, Elapsed: elapsed}
	default:
		return Result{Status: StatusHTTPError, StatusCode: resp.StatusCode, Elapsed: elapsed}
	}
}

// CloseIdleConnections releases any kept-alive provider connections. Called
// once at worker shutdown.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// classifyTransport maps a transport-level error onto a Status.
func classifyTransport(err error) Status {
	if errors.Is(err, context.Canceled) {
		return StatusCanceled
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return StatusTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return StatusTimeout
	}
	return StatusConnectionError
}
