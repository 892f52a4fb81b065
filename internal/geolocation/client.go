package geolocation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"tranquility/internal/platform/metrics"
	"tranquility/pkg/platform/circuit"
)

const defaultCooldown = 30 * time.Second

// Option configures a Client.
type Option func(*Client)

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// WithCooldown sets how long an open breaker suppresses lookups before the
// next probe.
func WithCooldown(d time.Duration) Option {
	return func(c *Client) { c.cooldown = d }
}

// Client talks to a Google-style geocoding JSON endpoint.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	breaker  *circuit.Breaker
	cooldown time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu        sync.Mutex
	lastProbe time.Time
}

// NewClient creates a Client. The HTTP transport is instrumented with otelhttp.
func NewClient(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker:  circuit.New("geolocation"),
		cooldown: defaultCooldown,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	ErrorMessage string `json:"error_message"`
}

// Geocode looks addr up. While the breaker is open lookups are skipped
// except for one probe per cooldown window.
func (c *Client) Geocode(ctx context.Context, addr Address) Result {
	if !c.allow() {
		c.metrics.IncrementGeocode("short_circuit")
		return Result{Status: StatusError}
	}

	res, err := c.lookup(ctx, addr)
	if err != nil {
		c.logger.WarnContext(ctx, "geocode lookup failed", "error", err)
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.WarnContext(ctx, "geocode circuit opened", "breaker", c.breaker.Name())
		}
		res = Result{Status: StatusError}
	} else if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "geocode circuit closed", "breaker", c.breaker.Name())
	}
	c.metrics.IncrementGeocode(string(res.Status))
	return res
}

func (c *Client) allow() bool {
	if !c.breaker.IsOpen() {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Since(c.lastProbe) < c.cooldown {
		return false
	}
	c.lastProbe = time.Now()
	return true
}

// lookup returns an error only for transport and decoding failures; service
// level refusals map to their own statuses.
func (c *Client) lookup(ctx context.Context, addr Address) (Result, error) {
	q := url.Values{}
	q.Set("address", addr.Query())
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("build geocode request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("geocode request: unexpected status %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, fmt.Errorf("decode geocode response: %w", err)
	}
	return mapStatus(body), nil
}

func mapStatus(body apiResponse) Result {
	switch body.Status {
	case "OK":
		if len(body.Results) == 0 {
			return Result{Status: StatusSuccess}
		}
		loc := body.Results[0].Geometry.Location
		return Result{Status: StatusSuccess, Latitude: loc.Lat, Longitude: loc.Lng}
	case "ZERO_RESULTS":
		return Result{Status: StatusSuccess}
	case "OVER_QUERY_LIMIT":
		return Result{Status: StatusLimitExceeded}
	case "REQUEST_DENIED":
		return Result{Status: StatusAccessDenied}
	case "INVALID_REQUEST":
		return Result{Status: StatusInvalidRequest}
	default:
		return Result{Status: StatusError}
	}
}
