package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// checkTimeout bounds one readiness pass across all checkers.
const checkTimeout = 5 * time.Second

// Checker probes a single dependency.
type Checker func(ctx context.Context) error

// Status represents the health status of a component.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Response is the body returned by the health endpoints.
type Response struct {
	Status    Status                 `json:"status"`
	Service   string                 `json:"service,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of probing one dependency.
type CheckResult struct {
	Status     Status `json:"status"`
	Critical   bool   `json:"critical"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

type check struct {
	probe    Checker
	critical bool
}

// Handler serves liveness and readiness endpoints over a set of named
// dependency checkers.
type Handler struct {
	service string
	mu      sync.RWMutex
	checks  map[string]check
}

// NewHandler creates a health handler reporting under the given service name.
func NewHandler(service string) *Handler {
	return &Handler{
		service: service,
		checks:  map[string]check{},
	}
}

// Register adds a named checker. Checkers registered this way are
// critical: their failure makes the service not ready.
func (h *Handler) Register(name string, c Checker) {
	h.RegisterCritical(name, c)
}

// RegisterCritical adds a checker whose failure returns 503 from readiness.
func (h *Handler) RegisterCritical(name string, c Checker) {
	h.add(name, check{probe: c, critical: true})
}

// RegisterNonCritical adds a checker whose failure degrades the reported
// status but keeps readiness at 200. Used for dependencies the service can
// run without, like the event broker.
func (h *Handler) RegisterNonCritical(name string, c Checker) {
	h.add(name, check{probe: c, critical: false})
}

func (h *Handler) add(name string, c check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = c
}

func (h *Handler) snapshot() map[string]check {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]check, len(h.checks))
	for name, c := range h.checks {
		out[name] = c
	}
	return out
}

// LivenessHandler reports 200 whenever the process is up.
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.respond(w, http.StatusOK, Response{
			Status:    StatusUp,
			Service:   h.service,
			Timestamp: time.Now().UTC(),
		})
	}
}

// ReadinessHandler runs every registered check. A failing critical check
// yields 503 with status "down"; failing non-critical checks yield 200
// with status "degraded".
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		results := h.runChecks(ctx)
		overall := worstOf(results)

		code := http.StatusOK
		if overall == StatusDown {
			code = http.StatusServiceUnavailable
		}
		h.respond(w, code, Response{
			Status:    overall,
			Service:   h.service,
			Timestamp: time.Now().UTC(),
			Checks:    results,
		})
	}
}

func (h *Handler) runChecks(ctx context.Context) map[string]CheckResult {
	checks := h.snapshot()
	results := make(map[string]CheckResult, len(checks))

	for name, c := range checks {
		started := time.Now()
		result := CheckResult{Status: StatusUp, Critical: c.critical}
		if err := c.probe(ctx); err != nil {
			result.Status = StatusDown
			result.Error = err.Error()
		}
		result.DurationMS = time.Since(started).Milliseconds()
		results[name] = result
	}
	return results
}

// worstOf folds individual results into an overall status: any critical
// failure means "down", any other failure means "degraded".
func worstOf(results map[string]CheckResult) Status {
	overall := StatusUp
	for _, r := range results {
		if r.Status != StatusDown {
			continue
		}
		if r.Critical {
			return StatusDown
		}
		overall = StatusDegraded
	}
	return overall
}

func (h *Handler) respond(w http.ResponseWriter, code int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}
