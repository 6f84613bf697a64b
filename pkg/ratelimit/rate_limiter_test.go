package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRateLimitType(t *testing.T) {
	tests := []struct {
		method, path string
		want         RateLimitType
	}{
		{http.MethodGet, "/health", RateLimitTypeHealth},
		{http.MethodGet, "/ping", RateLimitTypeHealth},
		{http.MethodPost, "/api/v1/admin/reservations/sweep", RateLimitTypeAdmin},
		{http.MethodPost, "/api/v1/auth/login", RateLimitTypeAuth},
		{http.MethodPost, "/api/v1/reservations", RateLimitTypeBookingCritical},
		{http.MethodDelete, "/api/v1/reservations/:requestId", RateLimitTypeBookingCritical},
		{http.MethodPost, "/api/v1/bookings/transactions", RateLimitTypeBookingCritical},
		{http.MethodGet, "/api/v1/reservations/:requestId", RateLimitTypeBooking},
		{http.MethodGet, "/api/v1/bookings/tickets", RateLimitTypeBooking},
		{http.MethodGet, "/api/v1/flights/:id/seats", RateLimitTypePublic},
		{http.MethodGet, "/api/v1/unknown", RateLimitTypeDefault},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, getRateLimitType(tt.method, tt.path), "%s %s", tt.method, tt.path)
	}
}

func TestGetClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newContext := func(headers map[string]string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.RemoteAddr = "10.0.0.9:5123"
		for k, v := range headers {
			c.Request.Header.Set(k, v)
		}
		return c
	}

	assert.Equal(t, "203.0.113.7", getClientIP(newContext(map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"})))
	assert.Equal(t, "198.51.100.2", getClientIP(newContext(map[string]string{"X-Real-IP": "198.51.100.2"})))
	assert.Equal(t, "10.0.0.9", getClientIP(newContext(map[string]string{"X-Forwarded-For": "garbage"})))
}

func TestIsAllowed_DisabledAndWhitelisted(t *testing.T) {
	limiter := NewRateLimiter(nil, &Config{
		Enabled:                 false,
		WindowDuration:          time.Minute,
		BookingCriticalRequests: 20,
	})
	result, err := limiter.IsAllowed(context.Background(), "1.2.3.4", RateLimitTypeBookingCritical)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 20, result.Limit)

	limiter = NewRateLimiter(nil, &Config{
		Enabled:         true,
		WindowDuration:  time.Minute,
		DefaultRequests: 1,
		WhitelistedIPs:  []string{"127.0.0.1"},
	})
	result, err = limiter.IsAllowed(context.Background(), "127.0.0.1", RateLimitTypeDefault)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

// Runs against a real Redis when REDIS_ADDR is set.
func TestIsAllowed_SlidingWindow(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	limiter := NewRateLimiter(client, &Config{
		Enabled:         true,
		KeyPrefix:       "flightbook:test:ratelimit:" + time.Now().Format("150405.000"),
		WindowDuration:  time.Minute,
		DefaultRequests: 2,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := limiter.IsAllowed(ctx, "192.0.2.1", RateLimitTypeDefault)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}
	result, err := limiter.IsAllowed(ctx, "192.0.2.1", RateLimitTypeDefault)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Zero(t, result.Remaining)
}
