package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/carrental/internal/domain"
	"github.com/Skotchmaster/carrental/internal/middleware"
	"github.com/Skotchmaster/carrental/internal/middleware/gate"
	"github.com/Skotchmaster/carrental/internal/middleware/ratelimit"
)

// CSRFSkipPaths are the endpoints a browser hits before it holds a session.
var CSRFSkipPaths = []string{
	"/api/v1/auth",
	"/api/v1/auth/login",
	"/api/v1/auth/register",
	"/api/v1/auth/logout",
	"/logout",
}

type Deps struct {
	Logger  *slog.Logger
	Auth    *AuthHTTP
	Users   *UsersHTTP
	Pages   PagesHTTP
	Health  *HealthHTTP
	Gate    *gate.Gate
	Limiter *ratelimit.Limiter
	CSRF    echo.MiddlewareFunc
	Metrics http.Handler
}

func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler()

	e.Pre(ecM.RemoveTrailingSlash())
	e.Use(middleware.Common(d.Logger)...)
	e.Use(d.Gate.Middleware())
	if d.CSRF != nil {
		e.Use(d.CSRF)
	}

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", d.Health.Live)
	e.GET("/health/ready", d.Health.ReadyCheck)
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}

	e.GET("/", d.Pages.Index)
	e.GET("/login", d.Pages.Login)
	e.GET("/logout", d.Auth.LogoutRedirect)
	e.GET("/dashboard", d.Pages.Dashboard)

	var loginLimit, registerLimit []echo.MiddlewareFunc
	if d.Limiter != nil {
		loginLimit = append(loginLimit, d.Limiter.Middleware("login"))
		registerLimit = append(registerLimit, d.Limiter.Middleware("register"))
	}

	auth := e.Group("/api/v1/auth")
	auth.POST("/login", d.Auth.Login, loginLimit...)
	auth.POST("", d.Auth.Login, loginLimit...)
	auth.POST("/register", d.Auth.Register, registerLimit...)
	auth.PUT("", d.Auth.Register, registerLimit...)
	auth.GET("/verify", d.Auth.Verify)
	auth.GET("", d.Auth.Verify)
	auth.POST("/logout", d.Auth.Logout)

	api := e.Group("/api/v1")
	api.GET("/me", d.Users.Me)

	admin := api.Group("/users", gate.RequireRole(domain.RoleAdmin))
	admin.GET("", d.Users.List)
	admin.PATCH("/:id/active", d.Users.SetActive)
	admin.PATCH("/:id/role", d.Users.SetRole)
}
