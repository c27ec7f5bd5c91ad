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

// AuthService implements login and registration.
type AuthService struct {
	repo   ports.AccountRepository
	hasher ports.PasswordHasher
	tokens ports.TokenIssuer
	audit  ports.AuditPublisher
	log    zerolog.Logger
	now    func() time.Time
}

func NewAuthService(
	repo ports.AccountRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	audit ports.AuditPublisher,
	log zerolog.Logger,
) *AuthService {
	if audit == nil {
		audit = NopAudit{}
	}
	return &AuthService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		audit:  audit,
		log:    log,
		now:    time.Now,
	}
}

// Login resolves identifier as a username first and then as an email. Every
// failure, whatever its cause, surfaces as domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*ports.AuthResult, error) {
	identifier = strings.TrimSpace(identifier)

	account, err := s.resolve(ctx, identifier)
	if err != nil {
		// Same bcrypt work as a real comparison so the miss is not observable.
		s.hasher.VerifyDummy(password)
		if !errors.Is(err, domain.ErrAccountNotFound) {
			s.log.Error().Err(err).Msg("login lookup failed")
		}
		s.record(ctx, domain.EventLogin, identifier, domain.OutcomeFailure, "unknown_account")
		return nil, domain.ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		s.record(ctx, domain.EventLogin, account.Username, domain.OutcomeFailure, "bad_password")
		return nil, domain.ErrInvalidCredentials
	}

	result, err := s.issue(account)
	if err != nil {
		s.log.Error().Err(err).Str("username", account.Username).Msg("issue token failed")
		return nil, domain.ErrInvalidCredentials
	}

	s.record(ctx, domain.EventLogin, account.Username, domain.OutcomeSuccess, "")
	return result, nil
}

// Register opens a USER account and signs it in. Username uniqueness is
// checked before email uniqueness. The checks are advisory: the store's
// unique indexes decide races, and their violations map to the same errors.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", domain.ErrInvalidInput)
	}

	taken, err := s.repo.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("register: check username: %w", err)
	}
	if taken {
		s.record(ctx, domain.EventRegister, in.Username, domain.OutcomeFailure, "username_taken")
		return nil, domain.ErrUsernameTaken
	}

	taken, err = s.repo.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("register: check email: %w", err)
	}
	if taken {
		s.record(ctx, domain.EventRegister, in.Username, domain.OutcomeFailure, "email_taken")
		return nil, domain.ErrEmailTaken
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, &domain.Account{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(in.FullName),
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) || errors.Is(err, domain.ErrEmailTaken) {
			s.log.Warn().Err(err).Str("username", in.Username).Msg("uniqueness race lost at insert")
			s.record(ctx, domain.EventRegister, in.Username, domain.OutcomeFailure, "conflict_on_insert")
			return nil, err
		}
		return nil, fmt.Errorf("register: create account: %w", err)
	}

	result, err := s.issue(created)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("username", created.Username).Msg("account registered")
	s.record(ctx, domain.EventRegister, created.Username, domain.OutcomeSuccess, "")
	return result, nil
}

func (s *AuthService) resolve(ctx context.Context, identifier string) (*domain.Account, error) {
	if identifier == "" {
		return nil, domain.ErrAccountNotFound
	}
	account, err := s.repo.FindByUsername(ctx, identifier)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}
	return s.repo.FindByEmail(ctx, normalizeEmail(identifier))
}

// Emails are stored lower-cased so the unique index and lookups agree.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) issue(a *domain.Account) (*ports.AuthResult, error) {
	token, claims, err := s.tokens.Issue(a.Username, a.Role)
	if err != nil {
		return nil, err
	}
	return &ports.AuthResult{
		Token:     token,
		Username:  a.Username,
		Email:     a.Email,
		FullName:  a.FullName,
		Role:      a.Role,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

func (s *AuthService) record(ctx context.Context, kind domain.AuthEventKind, username, outcome, reason string) {
	s.audit.Publish(domain.AuthEvent{
		Kind:       kind,
		Username:   username,
		Outcome:    outcome,
		Reason:     reason,
		RemoteIP:   domain.RemoteIPFromContext(ctx),
		OccurredAt: s.now().UTC(),
	})
}

// NopAudit discards every event.
type NopAudit struct{}

func (NopAudit) Publish(domain.AuthEvent) {}
