package service

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/pharmacy/backoffice/internal/core/domain"
)

// BcryptHasher implements ports.PasswordHasher with bcrypt. The salt and
// cost are embedded in every hash; comparison is constant-time.
type BcryptHasher struct {
	cost  int
	dummy []byte
}

// NewBcryptHasher returns a hasher using cost, falling back to
// bcrypt.DefaultCost when cost is out of range.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("precompute dummy hash: %w", err)
	}
	return &BcryptHasher{cost: cost, dummy: dummy}, nil
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("%w: empty password", domain.ErrInvalidInput)
	}
	out, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password longer than 72 bytes", domain.ErrInvalidInput)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(out), nil
}

func (h *BcryptHasher) Verify(plain, hash string) bool {
	if hash == "" {
		h.VerifyDummy(plain)
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

func (h *BcryptHasher) VerifyDummy(plain string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain))
}
