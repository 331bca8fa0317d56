package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsync/internal/infrastructure/ratelimit"
)

func serve(e *echo.Echo, uid, ip string) int {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = ip + ":1234"
	if uid != "" {
		req.Header.Set("X-Test-UID", uid)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func newLimitedEcho(perMinute int) *echo.Echo {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := ratelimit.NewRateLimiterWithClock(perMinute, func() time.Time { return fixed })

	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if uid := c.Request().Header.Get("X-Test-UID"); uid != "" {
				c.Set(ContextKeyUID, uid)
			}
			return next(c)
		}
	})
	e.POST("/", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, NewRateLimitMiddleware(limiter).Limit(ratelimit.ActionSendMessage))
	return e
}

func TestRateLimitIsPerUser(t *testing.T) {
	e := newLimitedEcho(2)

	require.Equal(t, http.StatusOK, serve(e, "alice", "10.0.0.1"))
	require.Equal(t, http.StatusOK, serve(e, "alice", "10.0.0.2"))
	assert.Equal(t, http.StatusTooManyRequests, serve(e, "alice", "10.0.0.3"))

	// Same address, different user.
	assert.Equal(t, http.StatusOK, serve(e, "bob", "10.0.0.1"))
}

func TestRateLimitFallsBackToIP(t *testing.T) {
	e := newLimitedEcho(1)

	require.Equal(t, http.StatusOK, serve(e, "", "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, serve(e, "", "10.0.0.1"))
	assert.Equal(t, http.StatusOK, serve(e, "", "10.0.0.2"))
}

func TestRateLimitWithoutLimiterPassesThrough(t *testing.T) {
	e := echo.New()
	e.POST("/", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, NewRateLimitMiddleware(nil).Limit(ratelimit.ActionSendMessage))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(e, "", "10.0.0.1"))
	}
}
