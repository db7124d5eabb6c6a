// Package auth owns the panel session lifecycle: login against the backend,
// logout teardown and the password change flow.
package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/puntomas/panel/internal/commission"
	"github.com/puntomas/panel/internal/platform/httpx"
	"github.com/puntomas/panel/internal/shared"
)

// MinPasswordLength is the shortest accepted new password, after trimming.
const MinPasswordLength = 6

// Landing paths of the panel.
const (
	PathAdmin          = "/admin"
	PathSupervisor     = "/supervisor-vendedores"
	PathSeller         = "/vendedor-home"
	PathChangePassword = "/cambiar-password"
	PathFallback       = "/dashboard"
)

var (
	// ErrUnknownRole rejects a login whose role the panel cannot serve.
	ErrUnknownRole = fmt.Errorf("%w: rol desconocido", httpx.ErrForbidden)
	// ErrPasswordMissing rejects a change with an empty field.
	ErrPasswordMissing = fmt.Errorf("%w: Completá la nueva contraseña en ambos campos", httpx.ErrValidation)
	// ErrPasswordTooShort rejects a new password under MinPasswordLength.
	ErrPasswordTooShort = fmt.Errorf("%w: La nueva contraseña debe tener al menos %d caracteres", httpx.ErrValidation, MinPasswordLength)
	// ErrPasswordMismatch rejects entries that differ.
	ErrPasswordMismatch = fmt.Errorf("%w: Las contraseñas nuevas no coinciden", httpx.ErrValidation)
)

// Landing returns where a principal goes after login. A pending password
// change overrides the role page.
func Landing(role commission.Role, mustChangePassword bool) string {
	if mustChangePassword {
		return PathChangePassword
	}
	switch role {
	case commission.RoleAdmin:
		return PathAdmin
	case commission.RoleSupervisor:
		return PathSupervisor
	case commission.RoleSeller:
		return PathSeller
	}
	return PathFallback
}

// ValidatePasswordChange checks both entries and returns the trimmed password.
func ValidatePasswordChange(newPassword, repeat string) (string, error) {
	newPassword = strings.TrimSpace(newPassword)
	repeat = strings.TrimSpace(repeat)
	if newPassword == "" || repeat == "" {
		return "", ErrPasswordMissing
	}
	if len([]rune(newPassword)) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	if newPassword != repeat {
		return "", ErrPasswordMismatch
	}
	return newPassword, nil
}

// Hook reacts to session lifecycle events.
type Hook interface {
	SessionStarted(ctx context.Context, sessionID string, p shared.Principal)
	SessionEnded(ctx context.Context, sessionID string)
}

// HookFuncs adapts plain functions to Hook. Nil fields are skipped.
type HookFuncs struct {
	Started func(ctx context.Context, sessionID string, p shared.Principal)
	Ended   func(ctx context.Context, sessionID string)
}

// SessionStarted implements Hook.
func (h HookFuncs) SessionStarted(ctx context.Context, sessionID string, p shared.Principal) {
	if h.Started != nil {
		h.Started(ctx, sessionID, p)
	}
}

// SessionEnded implements Hook.
func (h HookFuncs) SessionEnded(ctx context.Context, sessionID string) {
	if h.Ended != nil {
		h.Ended(ctx, sessionID)
	}
}
