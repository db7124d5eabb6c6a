package backend

import (
	"context"
	"net/http"

	"github.com/puntomas/panel/internal/commission"
)

// LoginResult is what the backend hands back on a successful login.
type LoginResult struct {
	Token              string          `json:"token" validate:"required"`
	Role               commission.Role `json:"rol" validate:"required"`
	Name               string          `json:"nombre"`
	MustChangePassword bool            `json:"debeCambiarPassword"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out LoginResult
	err := c.do(ctx, "", send("auth.login", http.MethodPost, "/api/tecnicocomercio/login",
		loginRequest{Email: email, Password: password}), &out)
	return out, err
}

type changePasswordRequest struct {
	NewPassword string `json:"passwordNueva"`
}

// ChangePassword sets a new password for the token owner.
func (c *Client) ChangePassword(ctx context.Context, token, newPassword string) error {
	var env okEnvelope
	if err := c.do(ctx, token, send("auth.change_password", http.MethodPost, "/api/tecnicocomercio/cambiar-password",
		changePasswordRequest{NewPassword: newPassword}), &env); err != nil {
		return err
	}
	return env.check(http.StatusBadRequest)
}
