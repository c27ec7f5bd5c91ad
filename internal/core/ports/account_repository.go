package ports

import (
	"context"
	"time"

	"github.com/pharmacy/backoffice/internal/core/domain"
)

// AccountRepository is the credential store. Lookups return
// domain.ErrAccountNotFound when nothing matches; Create and UpdateProfile
// return domain.ErrUsernameTaken or domain.ErrEmailTaken when the store's
// unique constraints reject the write.
//
// The two update methods touch disjoint fields, so a profile edit never
// writes back a password hash it read earlier.
type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	// UpdateProfile writes email, full name, birthday, gender and updated-at.
	UpdateProfile(ctx context.Context, account *domain.Account) error
	// UpdatePasswordHash replaces only the password hash and updated-at.
	UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error
	CountByRole(ctx context.Context) (map[domain.Role]int64, error)
}
