package gate

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/carrental/internal/apperr"
	"github.com/Skotchmaster/carrental/internal/domain"
	"github.com/Skotchmaster/carrental/internal/logging"
	"github.com/Skotchmaster/carrental/internal/metrics"
	"github.com/Skotchmaster/carrental/internal/session"
)

const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"

	CtxUserID    = "user_id"
	CtxRole      = "role"
	CtxPrincipal = "principal"
)

type Decision string

const (
	DecisionPublic       Decision = "public"
	DecisionAllowed      Decision = "allowed"
	DecisionTokenMissing Decision = "token_missing"
	DecisionTokenInvalid Decision = "token_invalid"
	DecisionBadPath      Decision = "bad_path"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string, recheck bool) (*domain.Principal, error)
}

type Config struct {
	PublicPaths   []string
	LoginPath     string
	APIPrefix     string
	RecheckActive bool
}

// Gate decides per request whether the path may be served. Anything not on
// the public list needs a valid token.
type Gate struct {
	auth    Authenticator
	carrier *session.Carrier
	metrics metrics.Recorder

	public    []string
	loginPath string
	apiPrefix string
	recheck   bool
}

func New(auth Authenticator, carrier *session.Carrier, cfg Config, rec metrics.Recorder) *Gate {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api"
	}
	if rec == nil {
		rec = metrics.Nop{}
	}

	public := make([]string, 0, len(cfg.PublicPaths))
	for _, p := range cfg.PublicPaths {
		if p = normalize(p); p != "" {
			public = append(public, p)
		}
	}

	return &Gate{
		auth:      auth,
		carrier:   carrier,
		metrics:   rec,
		public:    public,
		loginPath: cfg.LoginPath,
		apiPrefix: normalize(cfg.APIPrefix),
		recheck:   cfg.RecheckActive,
	}
}

// IsPublic matches on whole path segments: "/login" covers "/login" and
// "/login/x" but not "/loginx". "/" only covers the root itself.
func (g *Gate) IsPublic(p string) bool {
	p = normalize(p)
	for _, pub := range g.public {
		if matches(p, pub) {
			return true
		}
	}
	return false
}

func (g *Gate) IsAPI(p string) bool {
	return matches(normalize(p), g.apiPrefix)
}

func (g *Gate) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			req.Header.Del(HeaderUserID)
			req.Header.Del(HeaderUserRole)

			l := logging.FromContext(req.Context()).With("mw", "gate")

			// Classify the exact string the router matched on, and refuse
			// paths whose raw and cleaned forms could disagree.
			p := echo.GetPath(req)
			if p == "" {
				p = "/"
			}
			if !canonical(p) {
				g.metrics.GateDecision(string(DecisionBadPath))
				l.Warn("access_denied", "status", 400, "reason", "non canonical path", "raw_path", p)
				return apperr.Validation("malformed request path")
			}

			if g.IsPublic(p) {
				g.metrics.GateDecision(string(DecisionPublic))
				return next(c)
			}

			token, _ := g.carrier.Extract(req)
			if token == "" {
				g.metrics.GateDecision(string(DecisionTokenMissing))
				l.Debug("access_denied", "reason", "token missing")
				return g.reject(c)
			}

			principal, err := g.auth.Authenticate(req.Context(), token, g.recheck)
			if err != nil {
				if apperr.KindOf(err) == apperr.KindInternal {
					l.Error("access_check_failed", "status", 500, "error", err)
					return err
				}
				g.metrics.GateDecision(string(DecisionTokenInvalid))
				l.Info("access_denied", "reason", err.Error())
				g.carrier.Clear(c)
				return g.reject(c)
			}

			g.metrics.GateDecision(string(DecisionAllowed))
			annotate(c, principal)
			return next(c)
		}
	}
}

func (g *Gate) reject(c echo.Context) error {
	if g.IsAPI(echo.GetPath(c.Request())) {
		return apperr.Authentication("authentication required")
	}
	return c.Redirect(http.StatusFound, g.loginPath)
}

func annotate(c echo.Context, p *domain.Principal) {
	req := c.Request()
	req.Header.Set(HeaderUserID, p.ID)
	req.Header.Set(HeaderUserRole, p.Role.String())
	c.SetRequest(req.WithContext(domain.WithPrincipal(req.Context(), p)))

	c.Set(CtxUserID, p.ID)
	c.Set(CtxRole, p.Role.String())
	c.Set(CtxPrincipal, p)
}

// RequireRole must run after the gate.
func RequireRole(roles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := Principal(c)
			if p == nil {
				return apperr.Authentication("authentication required")
			}
			if _, ok := allowed[p.Role]; !ok {
				logging.FromContext(c.Request().Context()).Warn("access_denied",
					"status", 403, "reason", "insufficient role", "role", p.Role.String(), "user_id", p.ID)
				return apperr.Authorization("insufficient role")
			}
			return next(c)
		}
	}
}

func Principal(c echo.Context) *domain.Principal {
	if p, ok := c.Get(CtxPrincipal).(*domain.Principal); ok {
		return p
	}
	return nil
}

func normalize(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// canonical reports whether p has no dot segments, empty segments or
// escaped separators and dots.
func canonical(p string) bool {
	if !strings.HasPrefix(p, "/") || normalize(p) != p {
		return false
	}
	lower := strings.ToLower(p)
	for _, esc := range []string{"%2f", "%5c", "%2e", "%00"} {
		if strings.Contains(lower, esc) {
			return false
		}
	}
	return !strings.Contains(p, "\\")
}

func matches(p, prefix string) bool {
	if prefix == "/" {
		return p == "/"
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}
