package service

import (
	"context"
	"errors"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Skotchmaster/carrental/internal/apperr"
	"github.com/Skotchmaster/carrental/internal/domain"
	"github.com/Skotchmaster/carrental/internal/events"
	"github.com/Skotchmaster/carrental/internal/hash"
	"github.com/Skotchmaster/carrental/internal/logging"
	"github.com/Skotchmaster/carrental/internal/metrics"
	"github.com/Skotchmaster/carrental/internal/models"
	"github.com/Skotchmaster/carrental/internal/repo"
	"github.com/Skotchmaster/carrental/internal/tokens"
)

const (
	minPasswordLen = 8
	maxUsernameLen = 64
)

type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	CreateUserIfNotExists(ctx context.Context, u *models.User) error
	List(ctx context.Context, search string, from, limit int) ([]models.User, int64, error)
	SetActive(ctx context.Context, id string, active bool) (*models.User, error)
	SetRole(ctx context.Context, id, role string) (*models.User, error)
}

type AuthService struct {
	Repo    UserStore
	Hasher  *hash.Hasher
	Tokens  *tokens.Codec
	Events  events.Publisher
	Metrics metrics.Recorder

	// RegisterRoles limits the roles a caller may pick at registration.
	// Any other requested role becomes the default role. Empty allows all.
	RegisterRoles []domain.Role
}

func NewAuthService(store UserStore, h *hash.Hasher, codec *tokens.Codec, pub events.Publisher, rec metrics.Recorder) *AuthService {
	if pub == nil {
		pub = events.Nop{}
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &AuthService{Repo: store, Hasher: h, Tokens: codec, Events: pub, Metrics: rec}
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

type RegisterInput struct {
	Username string
	Password string
	Name     string
	Email    string
	Role     string
}

var errInvalidCredentials = apperr.Authentication("invalid credentials")

func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if identifier == "" || password == "" {
		s.Metrics.LoginAttempt("invalid_input")
		return nil, apperr.Validation("identifier and password are required")
	}
	if len(password) > hash.MaxSecretLen {
		s.Metrics.LoginAttempt("invalid_input")
		return nil, apperr.Validation("password is too long")
	}

	user, err := s.Repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.Hasher.Dummy(password)
			s.Metrics.LoginAttempt("invalid_credentials")
			l.Warn("login_failed", "status", 401, "reason", "unknown identifier")
			return nil, errInvalidCredentials
		}
		s.Metrics.LoginAttempt("error")
		l.Error("login_failed", "status", 500, "reason", "store lookup", "error", err)
		return nil, apperr.Internal(err)
	}

	if !s.Hasher.Verify(password, user.PasswordHash) {
		s.Metrics.LoginAttempt("invalid_credentials")
		l.Warn("login_failed", "status", 401, "reason", "wrong password", "user_id", user.ID)
		return nil, errInvalidCredentials
	}
	if !user.IsActive {
		s.Metrics.LoginAttempt("inactive")
		l.Warn("login_failed", "status", 403, "reason", "account deactivated", "user_id", user.ID)
		return nil, apperr.Authorization("account deactivated")
	}

	res, err := s.issue(user)
	if err != nil {
		s.Metrics.LoginAttempt("error")
		l.Error("login_failed", "status", 500, "reason", "issue token", "error", err)
		return nil, apperr.Internal(err)
	}

	s.Metrics.LoginAttempt("success")
	s.publish(ctx, events.Event{Type: events.TypeUserLoggedIn, UserID: user.ID, Username: user.Username, Role: user.Role})
	l.Info("login_success", "user_id", user.ID)
	return res, nil
}

// Register creates the identity and logs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	user, err := s.newUser(in)
	if err != nil {
		s.Metrics.Registration("invalid_input")
		l.Warn("register_failed", "status", 400, "reason", err.Error())
		return nil, err
	}

	pwHash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		s.Metrics.Registration("error")
		l.Error("register_failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, apperr.Internal(err)
	}
	user.PasswordHash = pwHash

	if err := s.Repo.CreateUserIfNotExists(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			s.Metrics.Registration("conflict")
			l.Warn("register_failed", "status", 409, "reason", "user already exist")
			return nil, apperr.Conflict("username or email already registered")
		}
		s.Metrics.Registration("error")
		l.Error("register_failed", "status", 500, "reason", "store create", "error", err)
		return nil, apperr.Internal(err)
	}

	res, err := s.issue(user)
	if err != nil {
		s.Metrics.Registration("error")
		l.Error("register_failed", "status", 500, "reason", "issue token", "error", err)
		return nil, apperr.Internal(err)
	}

	s.Metrics.Registration("success")
	s.publish(ctx, events.Event{Type: events.TypeUserRegistered, UserID: user.ID, Username: user.Username, Role: user.Role})
	l.Info("register_success", "status", 201, "user_id", user.ID)
	return res, nil
}

// Authenticate verifies the token and, when recheck is set, re-reads the
// identity so a deactivated or deleted account stops working immediately.
func (s *AuthService) Authenticate(ctx context.Context, token string, recheck bool) (*domain.Principal, error) {
	claims, err := s.Tokens.Verify(token)
	if err != nil {
		if errors.Is(err, tokens.ErrTokenExpired) {
			return nil, apperr.Authentication("token expired")
		}
		return nil, apperr.Authentication("invalid token")
	}

	p := &domain.Principal{
		ID:       claims.UserID(),
		Username: claims.Username,
		Name:     claims.Name,
		Role:     domain.NormalizeRole(claims.Role),
	}
	if !recheck {
		return p, nil
	}

	user, err := s.activeUser(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Username, p.Name, p.Role = user.Username, user.Name, domain.NormalizeRole(user.Role)
	return p, nil
}

// Verify returns the current stored identity behind a token.
func (s *AuthService) Verify(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperr.Authentication("authentication required")
	}
	claims, err := s.Tokens.Verify(token)
	if err != nil {
		return nil, apperr.Authentication("invalid token")
	}
	return s.activeUser(ctx, claims.UserID())
}

func (s *AuthService) activeUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.Authentication("invalid token")
		}
		return nil, apperr.Internal(err)
	}
	if !user.IsActive {
		return nil, apperr.Authentication("invalid token")
	}
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*LoginResult, error) {
	token, exp, err := s.Tokens.Issue(tokens.Claims{
		Username:         user.Username,
		Name:             user.Name,
		Role:             user.Role,
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID},
	})
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: user}, nil
}

func (s *AuthService) newUser(in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	switch {
	case username == "" || in.Password == "" || strings.TrimSpace(in.Name) == "":
		return nil, apperr.Validation("username, password and name are required")
	case len(username) > maxUsernameLen:
		return nil, apperr.Validation("username is too long")
	case strings.ContainsAny(username, "@ \t"):
		return nil, apperr.Validation("username must not contain spaces or @")
	case len(in.Password) < minPasswordLen:
		return nil, apperr.Validation("password must be at least 8 characters")
	case len(in.Password) > hash.MaxSecretLen:
		return nil, apperr.Validation("password is too long")
	}

	user := &models.User{
		Username: username,
		Name:     strings.TrimSpace(in.Name),
		Role:     s.registerRole(in.Role).String(),
		IsActive: true,
	}

	if email := strings.ToLower(strings.TrimSpace(in.Email)); email != "" {
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			return nil, apperr.Validation("invalid email")
		}
		user.Email = &email
	}
	return user, nil
}

func (s *AuthService) registerRole(requested string) domain.Role {
	role := domain.NormalizeRole(requested)
	if len(s.RegisterRoles) == 0 || slices.Contains(s.RegisterRoles, role) {
		return role
	}
	return domain.RoleUser
}

// publish never fails the caller; a lost event is only logged.
func (s *AuthService) publish(ctx context.Context, ev events.Event) {
	if err := s.Events.Publish(ctx, ev); err != nil {
		logging.FromContext(ctx).Error("event_publish_failed", "type", ev.Type, "error", err)
	}
}
