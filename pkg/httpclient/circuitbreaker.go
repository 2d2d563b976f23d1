package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned by Do when the breaker rejects a request
// without sending it upstream.
var ErrCircuitOpen = gobreaker.ErrOpenState

var (
	breakerStateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Circuit breaker state per upstream (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})

	breakerFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circuit_breaker_fallback_invoked_total",
		Help: "Requests answered by a fallback while the circuit was open",
	}, []string{"name"})
)

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// CircuitBreakerConfig tunes the failure window of a CircuitBreakerClient.
type CircuitBreakerConfig struct {
	// Name identifies the breaker in logs and metrics.
	Name string

	// MaxRequests is how many probes may pass while half-open. 0 means one.
	MaxRequests uint32

	// Interval is the cyclic period for clearing counts while closed.
	// 0 keeps counts for the whole closed period.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration

	// FailureRatio opens the breaker once failures/requests reaches it.
	FailureRatio float64

	// MinRequests is the sample size required before the ratio applies.
	MinRequests uint32
}

// DefaultCircuitBreakerConfig returns the settings used for backend
// calls: trip at a 50% failure ratio over at least 5 requests, stay
// open for 30 seconds, then let a single probe through.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// FallbackFunc produces a substitute response when the circuit is open.
// It receives the rejection error, typically ErrCircuitOpen.
type FallbackFunc func(ctx context.Context, err error) (*http.Response, error)

// CircuitBreakerClient wraps a Client with a circuit breaker so a dead
// upstream sheds load quickly instead of tying every caller up in
// retries. It suits calls that have a cheaper alternative path: once
// the breaker opens, callers skip straight to their fallback tier.
type CircuitBreakerClient struct {
	name     string
	inner    *Client
	cb       *gobreaker.CircuitBreaker[*http.Response]
	log      *slog.Logger
	fallback FallbackFunc
}

// NewCircuitBreakerClient wraps client with a breaker configured from
// cfg. State transitions are logged and exported as a gauge.
func NewCircuitBreakerClient(client *Client, cfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerStateGauge.WithLabelValues(name).Set(stateValue(to))
		},
	}

	breakerStateGauge.WithLabelValues(cfg.Name).Set(0)

	return &CircuitBreakerClient{
		name:  cfg.Name,
		inner: client,
		cb:    gobreaker.NewCircuitBreaker[*http.Response](settings),
		log:   logger,
	}
}

// WithFallback returns a copy of the client that serves fn whenever the
// breaker rejects a request. The breaker itself is shared, so the copy
// observes the same state as the original.
func (c *CircuitBreakerClient) WithFallback(fn FallbackFunc) *CircuitBreakerClient {
	clone := *c
	clone.fallback = fn
	return &clone
}

// Do sends req through the breaker. 5xx responses count as failures and
// come back as errors. When the circuit is open and a fallback is set,
// the fallback answers instead of ErrCircuitOpen.
func (c *CircuitBreakerClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.cb.Execute(func() (*http.Response, error) {
		return c.roundTrip(ctx, req)
	})
	if err == nil {
		return resp, nil
	}
	if c.fallback != nil && errors.Is(err, ErrCircuitOpen) {
		breakerFallbacks.WithLabelValues(c.name).Inc()
		c.log.WarnContext(ctx, "circuit open, serving fallback", slog.String("breaker", c.name))
		return c.fallback(ctx, err)
	}
	return nil, err
}

// roundTrip performs the request and converts 5xx responses into errors
// so the breaker counts them.
func (c *CircuitBreakerClient) roundTrip(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.inner.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, fmt.Errorf("upstream status %d: %s", resp.StatusCode, body)
	}
	return resp, nil
}

// Get issues a GET to url through the breaker.
func (c *CircuitBreakerClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create GET request: %w", err)
	}
	return c.Do(ctx, req)
}

// State reports the breaker's current state.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.cb.State()
}
