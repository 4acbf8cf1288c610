package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/carrental/internal/apperr"
)

func newServer(l *Limiter) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		_ = c.NoContent(apperr.KindOf(err).Status())
	}
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, l.Middleware("login"))
	return e
}

func post(e *echo.Echo, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = ip + ":1234"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestLimiter_BurstThen429(t *testing.T) {
	t.Parallel()

	l := New(Config{PerMinute: 1, Burst: 3, CleanupInterval: time.Minute}, nil)
	defer l.Stop()
	e := newServer(l)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, post(e, "10.0.0.1").Code, "request %d", i)
	}

	rec := post(e, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, post(e, "10.0.0.2").Code)
	assert.Equal(t, 2, l.Count())
}

func TestLimiter_CleanupDropsIdleClients(t *testing.T) {
	t.Parallel()

	l := New(Config{PerMinute: 60, Burst: 1, CleanupInterval: time.Hour}, nil)
	defer l.Stop()

	l.get("a")
	l.get("b")
	require.Equal(t, 2, l.Count())

	l.cleanup(time.Now().Add(3 * time.Hour))
	assert.Equal(t, 0, l.Count())
}
