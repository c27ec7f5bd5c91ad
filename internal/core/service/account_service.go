package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pharmacy/backoffice/internal/core/domain"
	"github.com/pharmacy/backoffice/internal/core/ports"
)

// AccountService implements self-service profile and password management
// plus the administrative lookups.
type AccountService struct {
	repo   ports.AccountRepository
	hasher ports.PasswordHasher
	audit  ports.AuditPublisher
	log    zerolog.Logger
	now    func() time.Time
}

func NewAccountService(repo ports.AccountRepository, hasher ports.PasswordHasher, audit ports.AuditPublisher, log zerolog.Logger) *AccountService {
	if audit == nil {
		audit = NopAudit{}
	}
	return &AccountService{repo: repo, hasher: hasher, audit: audit, log: log, now: time.Now}
}

func (s *AccountService) GetProfile(ctx context.Context, p domain.Principal) (*domain.Account, error) {
	return s.current(ctx, p)
}

// UpdateProfile changes the caller's full name, email and optional profile
// attributes. A new email already owned by another account is rejected.
func (s *AccountService) UpdateProfile(ctx context.Context, p domain.Principal, in ports.UpdateProfileInput) (*domain.Account, error) {
	account, err := s.current(ctx, p)
	if err != nil {
		return nil, err
	}

	email := normalizeEmail(in.Email)
	fullName := strings.TrimSpace(in.FullName)
	if email == "" || fullName == "" {
		return nil, fmt.Errorf("%w: full name and email are required", domain.ErrInvalidInput)
	}

	if email != account.Email {
		owner, err := s.repo.FindByEmail(ctx, email)
		switch {
		case err == nil && owner.ID != account.ID:
			s.record(ctx, domain.EventProfileUpdate, account.Username, domain.OutcomeFailure, "email_taken")
			return nil, domain.ErrEmailTaken
		case err != nil && !errors.Is(err, domain.ErrAccountNotFound):
			return nil, fmt.Errorf("update profile: check email: %w", err)
		}
	}

	account.FullName = fullName
	account.Email = email
	if in.Birthday != nil {
		b := in.Birthday.UTC()
		account.Birthday = &b
	}
	if g := strings.TrimSpace(in.Gender); g != "" {
		account.Gender = g
	}
	account.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateProfile(ctx, account); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.record(ctx, domain.EventProfileUpdate, account.Username, domain.OutcomeSuccess, "")
	return account, nil
}

// ChangePassword re-verifies the current password before anything else;
// the stored hash is left untouched on every failure path.
func (s *AccountService) ChangePassword(ctx context.Context, p domain.Principal, in ports.ChangePasswordInput) error {
	account, err := s.current(ctx, p)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(in.Current, account.PasswordHash) {
		s.record(ctx, domain.EventPasswordChange, account.Username, domain.OutcomeFailure, "wrong_current_password")
		return domain.ErrWrongCurrentPassword
	}
	if in.New != in.Confirm {
		return domain.ErrPasswordMismatch
	}

	hash, err := s.hasher.Hash(in.New)
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePasswordHash(ctx, account.ID, hash, s.now().UTC()); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	s.log.Info().Str("username", account.Username).Msg("password changed")
	s.record(ctx, domain.EventPasswordChange, account.Username, domain.OutcomeSuccess, "")
	return nil
}

func (s *AccountService) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrAccountNotFound
	}
	return s.repo.FindByID(ctx, id)
}

// RoleStats returns the number of accounts per role; every role is present
// in the result, zero when unused.
func (s *AccountService) RoleStats(ctx context.Context) (map[domain.Role]int64, error) {
	counts, err := s.repo.CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("role stats: %w", err)
	}
	out := make(map[domain.Role]int64, len(domain.AllRoles))
	for _, r := range domain.AllRoles {
		out[r] = counts[r]
	}
	return out, nil
}

func (s *AccountService) current(ctx context.Context, p domain.Principal) (*domain.Account, error) {
	if p.Username == "" {
		return nil, domain.ErrMissingCredential
	}
	return s.repo.FindByUsername(ctx, p.Username)
}

func (s *AccountService) record(ctx context.Context, kind domain.AuthEventKind, username, outcome, reason string) {
	s.audit.Publish(domain.AuthEvent{
		Kind:       kind,
		Username:   username,
		Outcome:    outcome,
		Reason:     reason,
		RemoteIP:   domain.RemoteIPFromContext(ctx),
		OccurredAt: s.now().UTC(),
	})
}
