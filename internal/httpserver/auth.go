package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/carrental/internal/apperr"
	"github.com/Skotchmaster/carrental/internal/logging"
	"github.com/Skotchmaster/carrental/internal/models"
	"github.com/Skotchmaster/carrental/internal/service"
	"github.com/Skotchmaster/carrental/internal/session"
)

type AuthHTTP struct {
	Svc     *service.AuthService
	Carrier *session.Carrier
}

type loginRequest struct {
	Identifier string `json:"identifier" form:"identifier"`
	Username   string `json:"username"   form:"username"`
	Email      string `json:"email"      form:"email"`
	Password   string `json:"password"   form:"password"`
}

type registerRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	Name     string `json:"name"     form:"name"`
	Email    string `json:"email"    form:"email"`
	Role     string `json:"role"     form:"role"`
}

type authData struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

type userData struct {
	User *models.User `json:"user"`
}

type envelope struct {
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_failed", "status", 400, "error", err)
		return apperr.Validation("invalid body")
	}

	form := isFormPost(c)
	identifier := firstNonEmpty(req.Identifier, req.Username, req.Email)
	res, err := h.Svc.Login(ctx, identifier, req.Password)
	if err != nil {
		if form && apperr.KindOf(err) != apperr.KindInternal {
			return c.Redirect(http.StatusSeeOther, "/login?failed=1")
		}
		return err
	}

	h.Carrier.Attach(c, res.Token, res.ExpiresAt)
	if form {
		return c.Redirect(http.StatusSeeOther, "/dashboard")
	}
	return c.JSON(http.StatusOK, envelope{
		Message: "Login Successful",
		Data:    authData{Token: res.Token, ExpiresAt: res.ExpiresAt, User: res.User},
	})
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_failed", "status", 400, "error", err)
		return apperr.Validation("invalid body")
	}

	res, err := h.Svc.Register(ctx, service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}

	h.Carrier.Attach(c, res.Token, res.ExpiresAt)
	return c.JSON(http.StatusCreated, envelope{
		Message: "User registered",
		Data:    authData{Token: res.Token, ExpiresAt: res.ExpiresAt, User: res.User},
	})
}

// Verify accepts the token from the Authorization header first, the cookie
// second, and answers with the stored identity rather than the claims.
func (h *AuthHTTP) Verify(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_verify")

	token, src := h.Carrier.Extract(c.Request())
	user, err := h.Svc.Verify(ctx, token)
	if err != nil {
		if src == session.SourceCookie && apperr.Is(err, apperr.KindAuthentication) {
			h.Carrier.Clear(c)
		}
		l.Info("verify_failed", "source", string(src), "reason", err.Error())
		return err
	}

	return c.JSON(http.StatusOK, envelope{Message: "Token valid", Data: userData{User: user}})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth_logout")
	h.Carrier.Clear(c)
	l.Info("successful_logout")
	return c.JSON(http.StatusOK, envelope{Message: "logged out"})
}

// LogoutRedirect is the browser variant of Logout.
func (h *AuthHTTP) LogoutRedirect(c echo.Context) error {
	h.Carrier.Clear(c)
	return c.Redirect(http.StatusFound, "/login")
}

// isFormPost is true for submissions of the HTML login page.
func isFormPost(c echo.Context) bool {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	return strings.HasPrefix(ct, echo.MIMEApplicationForm) || strings.HasPrefix(ct, echo.MIMEMultipartForm)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
