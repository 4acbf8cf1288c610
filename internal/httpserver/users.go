package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/carrental/internal/apperr"
	"github.com/Skotchmaster/carrental/internal/logging"
	"github.com/Skotchmaster/carrental/internal/middleware/gate"
	"github.com/Skotchmaster/carrental/internal/service"
	"github.com/Skotchmaster/carrental/internal/util"
)

type UsersHTTP struct {
	Svc *service.AuthService
}

func (h *UsersHTTP) Me(c echo.Context) error {
	p := gate.Principal(c)
	if p == nil {
		return apperr.Authentication("authentication required")
	}
	return c.JSON(http.StatusOK, envelope{Data: p})
}

func (h *UsersHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.list")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	res, err := h.Svc.ListUsers(ctx, c.QueryParam("search"), page, size)
	if err != nil {
		return err
	}

	l.Info("list_users_success", "total", res.Total)
	return c.JSON(http.StatusOK, map[string]any{
		"data": res.Items,
		"meta": map[string]any{
			"page":        res.Page,
			"size":        res.Size,
			"total":       res.Total,
			"total_pages": util.TotalPages(res.Total, res.Size),
			"has_prev":    res.Page > 1,
			"has_next":    int64(res.Page*res.Size) < res.Total,
		},
	})
}

func (h *UsersHTTP) SetActive(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.set_active")

	id, err := userID(c)
	if err != nil {
		return err
	}

	var req struct {
		Active *bool `json:"active"`
	}
	if err := c.Bind(&req); err != nil || req.Active == nil {
		l.Warn("set_active_failed", "status", 400, "reason", "invalid body")
		return apperr.Validation("body must contain active")
	}

	user, err := h.Svc.SetActive(ctx, gate.Principal(c), id, *req.Active)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, envelope{Message: "user updated", Data: userData{User: user}})
}

func (h *UsersHTTP) SetRole(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.set_role")

	id, err := userID(c)
	if err != nil {
		return err
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil || req.Role == "" {
		l.Warn("set_role_failed", "status", 400, "reason", "invalid body")
		return apperr.Validation("body must contain role")
	}

	user, err := h.Svc.SetRole(ctx, gate.Principal(c), id, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, envelope{Message: "user updated", Data: userData{User: user}})
}

func userID(c echo.Context) (string, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return "", apperr.Validation("id is not a uuid")
	}
	return id.String(), nil
}
