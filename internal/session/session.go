package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

const DefaultCookieName = "authToken"

type Source string

const (
	SourceNone   Source = ""
	SourceHeader Source = "header"
	SourceCookie Source = "cookie"
)

// Carrier moves the access token between the server and the client. The
// Authorization header wins over the cookie when both are present.
type Carrier struct {
	Name   string
	Path   string
	Secure bool
	MaxAge time.Duration
}

func NewCarrier(name string, secure bool, maxAge time.Duration) *Carrier {
	if name == "" {
		name = DefaultCookieName
	}
	return &Carrier{Name: name, Path: "/", Secure: secure, MaxAge: maxAge}
}

func (s *Carrier) Cookie(token string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     s.Name,
		Value:    token,
		Path:     s.Path,
		Expires:  exp,
		MaxAge:   int(s.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (s *Carrier) DeleteCookie() *http.Cookie {
	return &http.Cookie{
		Name:     s.Name,
		Value:    "",
		Path:     s.Path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (s *Carrier) Attach(c echo.Context, token string, exp time.Time) {
	c.SetCookie(s.Cookie(token, exp))
}

func (s *Carrier) Clear(c echo.Context) {
	c.SetCookie(s.DeleteCookie())
}

func (s *Carrier) Extract(r *http.Request) (string, Source) {
	if tok := BearerToken(r.Header.Get(echo.HeaderAuthorization)); tok != "" {
		return tok, SourceHeader
	}
	if ck, err := r.Cookie(s.Name); err == nil && ck.Value != "" {
		return ck.Value, SourceCookie
	}
	return "", SourceNone
}

// BearerToken returns the credential of an "Authorization: Bearer x" value,
// or "" for any other scheme.
func BearerToken(h string) string {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}
