package httpserver

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/carrental/internal/middleware/gate"
)

var pageTmpl = template.Must(template.New("page").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>{{.Title}} | Car Rental Admin</title></head>
<body>
<h1>{{.Title}}</h1>
{{if .Error}}<p role="alert">{{.Error}}</p>{{end}}
{{if .User}}<p>Signed in as {{.User}} ({{.Role}}). <a href="/logout">Log out</a></p>{{end}}
{{if .Form}}<form method="post" action="/api/v1/auth/login">
<input name="identifier" placeholder="username or email" autocomplete="username">
<input name="password" type="password" autocomplete="current-password">
<button type="submit">Sign in</button>
</form>{{end}}
{{if .Link}}<p><a href="{{.Link}}">{{.LinkText}}</a></p>{{end}}
</body>
</html>
`))

type page struct {
	Title    string
	Error    string
	User     string
	Role     string
	Form     bool
	Link     string
	LinkText string
}

type PagesHTTP struct{}

func (PagesHTTP) Index(c echo.Context) error {
	return renderPage(c, page{Title: "Car Rental Admin", Link: "/dashboard", LinkText: "Open dashboard"})
}

func (PagesHTTP) Login(c echo.Context) error {
	p := page{Title: "Sign in", Form: true}
	if c.QueryParam("failed") != "" {
		p.Error = "Sign in failed. Check your username and password."
	}
	return renderPage(c, p)
}

func (PagesHTTP) Dashboard(c echo.Context) error {
	p := gate.Principal(c)
	if p == nil {
		return c.Redirect(http.StatusFound, "/login")
	}
	name := p.Name
	if name == "" {
		name = p.Username
	}
	return renderPage(c, page{Title: "Dashboard", User: name, Role: p.Role.String()})
}

func renderPage(c echo.Context, p page) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return pageTmpl.Execute(c.Response(), p)
}

type HealthHTTP struct {
	Ready func(ctx context.Context) error
}

func (h *HealthHTTP) Live(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (h *HealthHTTP) ReadyCheck(c echo.Context) error {
	if h.Ready != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.Ready(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
