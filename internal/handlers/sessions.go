package handlers

import (
	"context"

	"github.com/serroba/safelink/internal/auth"
)

// Authenticator issues sessions for valid credentials.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*auth.Session, error)
}

// SessionHandler handles login.
type SessionHandler struct {
	authn Authenticator
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(authn Authenticator) *SessionHandler {
	return &SessionHandler{authn: authn}
}

func (h *SessionHandler) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	session, err := h.authn.Login(ctx, req.Body.EmailAddress, req.Body.Password)
	if err != nil {
		return nil, toHTTPError(err)
	}

	resp := &LoginResponse{}
	resp.Body.Message = "Logged in successfully"
	resp.Body.Data.Token = session.Token
	resp.Body.Data.OwnerID = session.OwnerID
	resp.Body.Data.ExpiresAt = session.ExpiresAt

	return resp, nil
}

// Compile-time check.
var _ Authenticator = (*auth.Authenticator)(nil)
