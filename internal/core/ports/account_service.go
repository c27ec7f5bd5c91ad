package ports

import (
	"context"
	"time"

	"github.com/pharmacy/backoffice/internal/core/domain"
)

type UpdateProfileInput struct {
	FullName string
	Email    string
	Birthday *time.Time // nil leaves the stored value untouched
	Gender   string     // empty leaves the stored value untouched
}

type ChangePasswordInput struct {
	Current string
	New     string
	Confirm string
}

// AccountService covers the authenticated caller's own account plus the
// administrative lookups.
type AccountService interface {
	GetProfile(ctx context.Context, p domain.Principal) (*domain.Account, error)
	UpdateProfile(ctx context.Context, p domain.Principal, in UpdateProfileInput) (*domain.Account, error)
	ChangePassword(ctx context.Context, p domain.Principal, in ChangePasswordInput) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	RoleStats(ctx context.Context) (map[domain.Role]int64, error)
}
