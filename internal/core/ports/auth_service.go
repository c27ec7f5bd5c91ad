package ports

import (
	"context"
	"time"

	"github.com/pharmacy/backoffice/internal/core/domain"
)

// RegisterInput carries the fields needed to open a new account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
}

// AuthResult is returned by a successful login or registration.
type AuthResult struct {
	Token     string
	Username  string
	Email     string
	FullName  string
	Role      domain.Role
	ExpiresAt time.Time
}

// AuthService signs callers in.
type AuthService interface {
	Login(ctx context.Context, identifier, password string) (*AuthResult, error)
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
}
