package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/carrental/internal/apperr"
)

func newServer() *echo.Echo {
	e := echo.New()
	e.Use(Middleware(Config{SkipPaths: []string{"/api/v1/auth/login"}}))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e.GET("/form", ok)
	e.POST("/submit", ok)
	e.POST("/api/v1/auth/login", ok)
	return e
}

func TestMiddleware_GetIssuesToken(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newServer().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/form", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-CSRF-Token"))
	require.NotEmpty(t, rec.Result().Cookies())
	assert.Equal(t, "XSRF-TOKEN", rec.Result().Cookies()[0].Name)
}

func TestMiddleware_PostChecks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		path   string
		cookie string
		header string
		origin string
		bearer bool
		want   int
	}{
		{"matching token", "/submit", "tok", "tok", "http://example.com", false, http.StatusNoContent},
		{"mismatched token", "/submit", "tok", "other", "http://example.com", false, http.StatusForbidden},
		{"missing header", "/submit", "tok", "", "http://example.com", false, http.StatusForbidden},
		{"foreign origin", "/submit", "tok", "tok", "http://evil.test", false, http.StatusForbidden},
		{"bearer request skips", "/submit", "", "", "", true, http.StatusNoContent},
		{"skip path", "/api/v1/auth/login", "", "", "", false, http.StatusNoContent},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newServer()
			e.HTTPErrorHandler = func(err error, c echo.Context) {
				_ = c.NoContent(apperr.KindOf(err).Status())
			}

			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set("X-CSRF-Token", tt.header)
			}
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.bearer {
				req.Header.Set(echo.HeaderAuthorization, "Bearer abc")
			}

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
