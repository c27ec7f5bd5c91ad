package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/pharmacy/backoffice/internal/core/domain"
)

// stubAccountRepo mirrors the Mongo adapter: unique username and email,
// case-sensitive lookups, copies in and out.
type stubAccountRepo struct {
	mu        sync.Mutex
	accounts  map[string]*domain.Account // keyed by username
	nextID    int
	updates   int
	updateErr error
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{accounts: make(map[string]*domain.Account)}
}

func cloneAccount(a *domain.Account) *domain.Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

func (r *stubAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.ID == id {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) FindByUsername(_ context.Context, username string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[username]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *stubAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == email {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.FindByUsername(ctx, username)
	return err == nil, nil
}

func (r *stubAccountRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	return err == nil, nil
}

func (r *stubAccountRepo) Create(_ context.Context, a *domain.Account) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accounts[a.Username]; exists {
		return nil, domain.ErrUsernameTaken
	}
	for _, other := range r.accounts {
		if other.Email == a.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	r.nextID++
	c := cloneAccount(a)
	c.ID = fmt.Sprintf("acc-%d", r.nextID)
	r.accounts[c.Username] = c
	return cloneAccount(c), nil
}

func (r *stubAccountRepo) UpdateProfile(_ context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	stored := r.byID(a.ID)
	if stored == nil {
		return domain.ErrAccountNotFound
	}
	for _, other := range r.accounts {
		if other.ID != a.ID && other.Email == a.Email {
			return domain.ErrEmailTaken
		}
	}
	r.updates++
	stored.Email = a.Email
	stored.FullName = a.FullName
	stored.Birthday = a.Birthday
	stored.Gender = a.Gender
	stored.UpdatedAt = a.UpdatedAt
	return nil
}

func (r *stubAccountRepo) UpdatePasswordHash(_ context.Context, id, hash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	stored := r.byID(id)
	if stored == nil {
		return domain.ErrAccountNotFound
	}
	r.updates++
	stored.PasswordHash = hash
	stored.UpdatedAt = at
	return nil
}

// byID must be called with mu held.
func (r *stubAccountRepo) byID(id string) *domain.Account {
	for _, a := range r.accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (r *stubAccountRepo) CountByRole(_ context.Context) (map[domain.Role]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[domain.Role]int64)
	for _, a := range r.accounts {
		out[a.Role]++
	}
	return out, nil
}

// recordingAudit keeps every published event.
type recordingAudit struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (a *recordingAudit) Publish(e domain.AuthEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *recordingAudit) last() domain.AuthEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.events) == 0 {
		return domain.AuthEvent{}
	}
	return a.events[len(a.events)-1]
}

func newTestHasher(t *testing.T) *BcryptHasher {
	t.Helper()
	h, err := NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	return h
}

func newTestCodec(t *testing.T, ttl time.Duration) *TokenCodec {
	t.Helper()
	c, err := NewTokenCodec("test-secret", ttl)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return c
}

type fixture struct {
	repo   *stubAccountRepo
	hasher *BcryptHasher
	codec  *TokenCodec
	audit  *recordingAudit
	auth   *AuthService
	acct   *AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:   newStubAccountRepo(),
		hasher: newTestHasher(t),
		codec:  newTestCodec(t, time.Hour),
		audit:  &recordingAudit{},
	}
	f.auth = NewAuthService(f.repo, f.hasher, f.codec, f.audit, zerolog.Nop())
	f.acct = NewAccountService(f.repo, f.hasher, f.audit, zerolog.Nop())
	return f
}
