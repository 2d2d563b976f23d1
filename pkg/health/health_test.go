package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pass(ctx context.Context) error { return nil }

func fail(msg string) Checker {
	return func(ctx context.Context) error { return fmt.Errorf("%s", msg) }
}

// readiness runs one readiness request and returns the status code with
// the decoded body.
func readiness(t *testing.T, h *Handler) (int, Response) {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec.Code, resp
}

func TestLivenessHandler_AlwaysUp(t *testing.T) {
	h := NewHandler("media-gateway")

	rec := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusUp, resp.Status)
	assert.Equal(t, "media-gateway", resp.Service)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestReadiness_AllUp(t *testing.T) {
	h := NewHandler("media-gateway")
	h.Register("backend", pass)
	h.Register("kafka", pass)

	code, resp := readiness(t, h)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusUp, resp.Status)
	assert.Equal(t, StatusUp, resp.Checks["backend"].Status)
	assert.Equal(t, StatusUp, resp.Checks["kafka"].Status)
}

func TestReadiness_CriticalFailure(t *testing.T) {
	h := NewHandler("media-gateway")
	h.Register("backend", pass)
	h.Register("kafka", fail("connection refused"))

	code, resp := readiness(t, h)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, StatusDown, resp.Status)
	assert.Equal(t, StatusUp, resp.Checks["backend"].Status)
	assert.Equal(t, StatusDown, resp.Checks["kafka"].Status)
	assert.Equal(t, "connection refused", resp.Checks["kafka"].Error)
}

func TestReadiness_NoCheckers(t *testing.T) {
	code, resp := readiness(t, NewHandler("media-gateway"))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusUp, resp.Status)
}

func TestReadiness_ReRegisterReplaces(t *testing.T) {
	h := NewHandler("media-gateway")
	h.Register("backend", fail("old checker"))
	h.Register("backend", pass)

	code, resp := readiness(t, h)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusUp, resp.Checks["backend"].Status)
}

func TestReadiness_NonCriticalFailureDegrades(t *testing.T) {
	h := NewHandler("media-gateway")
	h.RegisterCritical("backend", pass)
	h.RegisterNonCritical("kafka", fail("broker unreachable"))

	code, resp := readiness(t, h)

	assert.Equal(t, http.StatusOK, code, "degraded service must stay ready")
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.True(t, resp.Checks["backend"].Critical)
	assert.Equal(t, StatusDown, resp.Checks["kafka"].Status)
	assert.False(t, resp.Checks["kafka"].Critical)
	assert.Equal(t, "broker unreachable", resp.Checks["kafka"].Error)
}

func TestReadiness_CriticalFailureTrumpsDegraded(t *testing.T) {
	h := NewHandler("media-gateway")
	h.RegisterCritical("backend", fail("backend down"))
	h.RegisterNonCritical("kafka", fail("kafka down"))

	code, resp := readiness(t, h)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, StatusDown, resp.Status)
}

func TestReadiness_MultipleNonCriticalFailures(t *testing.T) {
	h := NewHandler("media-gateway")
	h.RegisterCritical("backend", pass)
	h.RegisterNonCritical("kafka", fail("kafka down"))
	h.RegisterNonCritical("tracing", fail("collector down"))

	code, resp := readiness(t, h)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Equal(t, StatusDown, resp.Checks["kafka"].Status)
	assert.Equal(t, StatusDown, resp.Checks["tracing"].Status)
}

func TestRegister_DefaultsToCritical(t *testing.T) {
	h := NewHandler("media-gateway")
	h.Register("backend", fail("fail"))

	code, resp := readiness(t, h)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, StatusDown, resp.Status)
	assert.True(t, resp.Checks["backend"].Critical)
}

func TestReadiness_MixedRegistrationsAllUp(t *testing.T) {
	h := NewHandler("media-gateway")
	h.RegisterCritical("backend", pass)
	h.RegisterNonCritical("kafka", pass)

	code, resp := readiness(t, h)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusUp, resp.Status)
}
