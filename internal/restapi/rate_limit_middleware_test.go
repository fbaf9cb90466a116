package restapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/clock"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestFrom(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/sensor", nil)
	req.RemoteAddr = addr
	return req
}

func TestRateLimitMiddleware_PerClient(t *testing.T) {
	rl := NewRateLimitMiddleware(2, time.Second, clock.NewMockClock(time.Now()))
	defer rl.Stop()
	handler := rl.Handler()(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestFrom("10.0.0.1:5000"))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("10.0.0.1:5001"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, http.StatusTooManyRequests, body.Code)

	// limits are per client
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("10.0.0.2:5000"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	rl := NewRateLimitMiddleware(0, time.Second, nil)
	defer rl.Stop()
	handler := rl.Handler()(okHandler())

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestFrom("10.0.0.1:5000"))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Empty(t, rl.limiters)
}

func TestRateLimitMiddleware_CleanupEvictsIdleClients(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC))
	rl := NewRateLimitMiddleware(5, time.Second, clk)
	defer rl.Stop()

	rl.getLimiter("10.0.0.1")
	clk.Advance(5 * time.Minute)
	rl.getLimiter("10.0.0.2")

	clk.Advance(6 * time.Minute)
	rl.cleanupOnce()

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	assert.NotContains(t, rl.limiters, "10.0.0.1")
	assert.Contains(t, rl.limiters, "10.0.0.2")
}

func TestRateLimitMiddleware_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimitMiddleware(5, time.Second, nil)
	rl.Stop()
	rl.Stop()
}

func TestClientKey(t *testing.T) {
	assert.Equal(t, "10.0.0.1", clientKey(requestFrom("10.0.0.1:1234")))
	assert.Equal(t, "::1", clientKey(requestFrom("[::1]:1234")))
	assert.Equal(t, "unix", clientKey(requestFrom("unix")))
}
