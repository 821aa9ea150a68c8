package middleware

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophsync/pkg/api"
)

func newTestLimiter(t *testing.T, rate int, window time.Duration) (*RateLimiter, *clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClock()
	limiter := NewRateLimiter(rate, window, clock, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(limiter.Stop)
	return limiter, clock
}

func TestNewRateLimiter(t *testing.T) {
	limiter, _ := newTestLimiter(t, 10, time.Minute)

	assert.Equal(t, 10, limiter.rate)
	assert.Equal(t, time.Minute, limiter.window)
	assert.NotNil(t, limiter.buckets)

	// Повторная остановка безопасна
	limiter.Stop()
	limiter.Stop()
}

func TestRateLimiter_Allow(t *testing.T) {
	t.Run("Requests over limit are denied", func(t *testing.T) {
		limiter, _ := newTestLimiter(t, 3, time.Minute)

		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow("device:laptop"), fmt.Sprintf("request %d should be allowed", i+1))
		}
		assert.False(t, limiter.Allow("device:laptop"))
	})

	t.Run("Different keys are tracked separately", func(t *testing.T) {
		limiter, _ := newTestLimiter(t, 1, time.Minute)

		assert.True(t, limiter.Allow("device:laptop"))
		assert.True(t, limiter.Allow("device:phone"))
		assert.False(t, limiter.Allow("device:laptop"))
	})

	t.Run("Tokens refill after window expires", func(t *testing.T) {
		limiter, clock := newTestLimiter(t, 2, time.Minute)

		assert.True(t, limiter.Allow("device:laptop"))
		assert.True(t, limiter.Allow("device:laptop"))
		assert.False(t, limiter.Allow("device:laptop"))

		clock.Advance(59 * time.Second)
		assert.False(t, limiter.Allow("device:laptop"))

		clock.Advance(time.Second)
		assert.True(t, limiter.Allow("device:laptop"))
	})
}

func TestRateLimiter_CleanupOldBuckets(t *testing.T) {
	limiter, clock := newTestLimiter(t, 5, time.Minute)

	limiter.Allow("device:laptop")
	clock.Advance(90 * time.Second)
	limiter.Allow("device:phone")
	clock.Advance(time.Minute)

	limiter.cleanupOldBuckets()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.NotContains(t, limiter.buckets, "device:laptop")
	assert.Contains(t, limiter.buckets, "device:phone")
}

func TestRateLimiter_CleanupTicker(t *testing.T) {
	limiter, clock := newTestLimiter(t, 5, time.Minute)
	limiter.Allow("device:laptop")

	clock.BlockUntil(1)
	clock.Advance(2*time.Minute + time.Second)

	assert.Eventually(t, func() bool {
		limiter.mu.Lock()
		defer limiter.mu.Unlock()
		return len(limiter.buckets) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestRateLimiter_Middleware(t *testing.T) {
	var logBuf strings.Builder
	clock := clockwork.NewFakeClock()
	limiter := NewRateLimiter(2, 30*time.Second, clock, slog.New(slog.NewTextHandler(&logBuf, nil)))
	defer limiter.Stop()

	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(deviceID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, api.PathPush, nil)
		req.RemoteAddr = "10.0.0.1:5000"
		if deviceID != "" {
			req.Header.Set(api.HeaderDeviceID, deviceID)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send("laptop").Code)
	assert.Equal(t, http.StatusOK, send("laptop").Code)

	w := send("laptop")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	var resp api.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Contains(t, resp.Error, "rate limit exceeded")
	assert.Contains(t, logBuf.String(), "Rate limit exceeded")
	assert.Contains(t, logBuf.String(), "device:laptop")

	// Устройства за одним IP не делят лимит
	assert.Equal(t, http.StatusOK, send("phone").Code)
	assert.Equal(t, http.StatusOK, send("").Code, "anonymous requests use the IP bucket")
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		headers    map[string]string
		name       string
		remoteAddr string
		expected   string
	}{
		{
			name:       "Device header wins",
			headers:    map[string]string{api.HeaderDeviceID: "laptop", "X-Forwarded-For": "203.0.113.1"},
			remoteAddr: "192.168.1.1:12345",
			expected:   "device:laptop",
		},
		{
			name:       "X-Forwarded-For with multiple IPs",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1, 198.51.100.1"},
			remoteAddr: "192.168.1.1:12345",
			expected:   "ip:203.0.113.1",
		},
		{
			name:       "X-Real-IP header",
			headers:    map[string]string{"X-Real-IP": "203.0.113.5"},
			remoteAddr: "192.168.1.1:12345",
			expected:   "ip:203.0.113.5",
		},
		{
			name:       "RemoteAddr fallback",
			remoteAddr: "192.168.1.1:12345",
			expected:   "ip:192.168.1.1:12345",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			assert.Equal(t, tt.expected, clientKey(req))
		})
	}
}
