package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pharmacy/backoffice/internal/core/domain"
	"github.com/pharmacy/backoffice/internal/core/ports"
)

// AdminSeed describes the administrator created on first start.
type AdminSeed struct {
	Username string
	Email    string
	Password string
	FullName string
}

// BootstrapAdmin creates one ADMIN account when the store holds none. It
// is a no-op on every later start and when no seed password is configured.
func BootstrapAdmin(ctx context.Context, repo ports.AccountRepository, hasher ports.PasswordHasher, seed AdminSeed, log zerolog.Logger) error {
	counts, err := repo.CountByRole(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: count admins: %w", err)
	}
	if counts[domain.RoleAdmin] > 0 {
		log.Debug().Int64("admins", counts[domain.RoleAdmin]).Msg("admin account present, skipping bootstrap")
		return nil
	}
	if seed.Password == "" {
		log.Warn().Msg("no admin account exists and BOOTSTRAP_ADMIN_PASSWORD is empty; skipping bootstrap")
		return nil
	}

	hash, err := hasher.Hash(seed.Password)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	now := time.Now().UTC()
	created, err := repo.Create(ctx, &domain.Account{
		Username:     seed.Username,
		Email:        normalizeEmail(seed.Email),
		PasswordHash: hash,
		FullName:     seed.FullName,
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("bootstrap: create admin: %w", err)
	}

	log.Info().Str("username", created.Username).Str("email", created.Email).Msg("default admin account created")
	return nil
}
