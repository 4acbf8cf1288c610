package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Skotchmaster/carrental/internal/apperr"
	"github.com/Skotchmaster/carrental/internal/domain"
	"github.com/Skotchmaster/carrental/internal/events"
	"github.com/Skotchmaster/carrental/internal/logging"
	"github.com/Skotchmaster/carrental/internal/models"
	"github.com/Skotchmaster/carrental/internal/repo"
	"github.com/Skotchmaster/carrental/internal/util"
)

type UserPage struct {
	Items []models.User
	Total int64
	Page  int
	Size  int
}

func (s *AuthService) ListUsers(ctx context.Context, search string, page, size int) (*UserPage, error) {
	from, limit := util.Calculate(page, size)
	users, total, err := s.Repo.List(ctx, search, from, limit)
	if err != nil {
		logging.FromContext(ctx).Error("list_users_failed", "status", 500, "error", err)
		return nil, apperr.Internal(err)
	}
	if users == nil {
		users = []models.User{}
	}
	return &UserPage{Items: users, Total: total, Page: from/limit + 1, Size: limit}, nil
}

// SetActive toggles the active flag. An admin cannot deactivate itself.
func (s *AuthService) SetActive(ctx context.Context, actor *domain.Principal, id string, active bool) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "users.set_active", "target_id", id)
	if actor != nil && actor.ID == id && !active {
		return nil, apperr.Validation("cannot deactivate your own account")
	}

	user, err := s.Repo.SetActive(ctx, id, active)
	if err != nil {
		return nil, s.mapStoreErr(l, err)
	}

	typ := events.TypeUserActivated
	if !active {
		typ = events.TypeUserDeactivated
	}
	s.publish(ctx, events.Event{Type: typ, UserID: user.ID, Username: user.Username, ActorID: actorID(actor)})
	l.Info("user_active_changed", "active", active)
	return user, nil
}

func (s *AuthService) SetRole(ctx context.Context, actor *domain.Principal, id, role string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "users.set_role", "target_id", id)
	r, ok := domain.ParseRole(role)
	if !ok {
		return nil, apperr.Validation("unknown role")
	}

	user, err := s.Repo.SetRole(ctx, id, r.String())
	if err != nil {
		return nil, s.mapStoreErr(l, err)
	}

	s.publish(ctx, events.Event{Type: events.TypeUserRoleChanged, UserID: user.ID, Username: user.Username, Role: user.Role, ActorID: actorID(actor)})
	l.Info("user_role_changed", "role", user.Role)
	return user, nil
}

func (s *AuthService) mapStoreErr(l *slog.Logger, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return apperr.NotFound("user not found")
	}
	l.Error("store_failed", "status", 500, "error", err)
	return apperr.Internal(err)
}

func actorID(p *domain.Principal) string {
	if p == nil {
		return ""
	}
	return p.ID
}
