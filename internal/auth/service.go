package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/puntomas/panel/internal/backend"
	"github.com/puntomas/panel/internal/shared"
)

// Backend is the part of the backend client authentication needs.
type Backend interface {
	Login(ctx context.Context, email, password string) (backend.LoginResult, error)
	ChangePassword(ctx context.Context, token, newPassword string) error
}

// Service wraps authentication business rules.
type Service struct {
	backend Backend
	hooks   []Hook
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs a new Service.
func NewService(b Backend, logger *slog.Logger, hooks ...Hook) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: b, hooks: hooks, logger: logger, now: time.Now}
}

// Authenticate exchanges credentials for a principal. Backend rejections are
// returned unchanged so their message reaches the user verbatim.
func (s *Service) Authenticate(ctx context.Context, email, password string) (shared.Principal, error) {
	res, err := s.backend.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return shared.Principal{}, err
	}
	if !res.Role.Valid() {
		s.logger.Warn("login with unknown role", slog.String("role", string(res.Role)))
		return shared.Principal{}, ErrUnknownRole
	}
	return shared.Principal{
		Token:              res.Token,
		Role:               res.Role,
		Name:               res.Name,
		MustChangePassword: res.MustChangePassword,
		LoggedInAt:         s.now().UTC(),
	}, nil
}

// Started runs the session start hooks.
func (s *Service) Started(ctx context.Context, sessionID string, p shared.Principal) {
	for _, h := range s.hooks {
		h.SessionStarted(ctx, sessionID, p)
	}
}

// Ended runs the session teardown hooks.
func (s *Service) Ended(ctx context.Context, sessionID string) {
	for _, h := range s.hooks {
		h.SessionEnded(ctx, sessionID)
	}
}

// ChangePassword validates both entries locally before calling the backend.
func (s *Service) ChangePassword(ctx context.Context, p shared.Principal, newPassword, repeat string) error {
	password, err := ValidatePasswordChange(newPassword, repeat)
	if err != nil {
		return err
	}
	return s.backend.ChangePassword(ctx, p.Token, password)
}
