package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bpaauwe/WeatherServicePrototype/internal/domain"
	"github.com/bpaauwe/WeatherServicePrototype/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"
)

const maxBodySize = 1 << 20

var (
	// ErrCircuitOpen is returned while the breaker is rejecting requests.
	ErrCircuitOpen = errors.New("openweather: circuit breaker open")
	// ErrMissingAPIKey is returned before any request when no key is configured.
	ErrMissingAPIKey = errors.New("openweather: api key is not configured")
)

// StatusError is a non-2xx response from the API.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("openweather API error: status %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("openweather API error: status %d", e.Code)
}

// Retryable reports whether the request is worth repeating.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Backoff controls retry spacing. The delay doubles per attempt up to MaxInterval.
type Backoff struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Client fetches current-weather observations from OpenWeatherMap.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	backoff    Backoff
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenWeatherMap client with retries and a circuit breaker.
func NewClient(baseURL string, timeout time.Duration, maxRetries int, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    newBreaker(),
		backoff: Backoff{
			MaxRetries:      maxRetries,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
		clock:   clockwork.NewRealClock(),
		metrics: metrics,
		logger:  logger,
	}
}

func newBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// Fetch requests the current observation for q.
func (c *Client) Fetch(ctx context.Context, q domain.Query) (domain.Observation, error) {
	if q.APIKey == "" {
		return domain.Observation{}, ErrMissingAPIKey
	}

	body, err := c.doWithResilience(ctx, c.requestURL(q))
	if err != nil {
		return domain.Observation{}, fmt.Errorf("fetch weather for %s: %w", q.Location, err)
	}
	return domain.DecodeObservation(body)
}

func (c *Client) requestURL(q domain.Query) string {
	params := url.Values{
		"appid": {q.APIKey},
		"units": {q.Units},
	}
	// "95762,us" and "E14,gb" are postal codes; "London,uk" is a city name.
	place, _, _ := strings.Cut(q.Location, ",")
	if strings.ContainsAny(place, "0123456789") {
		params.Set("zip", q.Location)
	} else {
		params.Set("q", q.Location)
	}
	return c.baseURL + "?" + params.Encode()
}

func (c *Client) doWithResilience(ctx context.Context, fullURL string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.doRequest(ctx, fullURL)
		})
		if err == nil {
			return result.([]byte), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt >= c.backoff.MaxRetries {
			return nil, err
		}

		delay := c.delay(attempt)
		c.logger.Warn("weather request failed, retrying",
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)
		c.metrics.FetchRetries.Inc()

		timer := c.clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.Chan():
		}
	}
}

func (c *Client) delay(attempt int) time.Duration {
	limit := c.backoff.MaxInterval
	d := c.backoff.InitialInterval
	for i := 0; i < attempt && (limit <= 0 || d < limit); i++ {
		d *= 2
	}
	if limit > 0 && d > limit {
		d = limit
	}
	return d
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Message: apiMessage(body)}
	}
	return body, nil
}

// apiMessage extracts the "message" field OpenWeatherMap puts in error bodies.
func apiMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(body))
}
