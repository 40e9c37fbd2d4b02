package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/account-api/internal/model"
	"github.com/iliyamo/account-api/internal/repository"
)

var errStoreDown = errors.New("store down")

// flakyRepo wraps the memory repository and fails writes on demand.
type flakyRepo struct {
	*repository.MemoryUserRepo
	failUpdate bool
	failDelete bool
}

func (r *flakyRepo) Update(ctx context.Context, u *model.User) error {
	if r.failUpdate {
		return errStoreDown
	}
	return r.MemoryUserRepo.Update(ctx, u)
}

func (r *flakyRepo) Delete(ctx context.Context, id string) error {
	if r.failDelete {
		return errStoreDown
	}
	return r.MemoryUserRepo.Delete(ctx, id)
}

type fakeNotifier struct {
	mu            sync.Mutex
	welcome       []string
	cancellations []string
	panics        bool
}

func (n *fakeNotifier) SendWelcome(email, name string) {
	n.mu.Lock()
	n.welcome = append(n.welcome, email)
	n.mu.Unlock()
	if n.panics {
		panic("mail relay exploded")
	}
}

func (n *fakeNotifier) SendCancellation(email, name string) {
	n.mu.Lock()
	n.cancellations = append(n.cancellations, email)
	n.mu.Unlock()
	if n.panics {
		panic("mail relay exploded")
	}
}

type fakeCache struct{ purged []string }

func (c *fakeCache) Purge(_ context.Context, userID string) { c.purged = append(c.purged, userID) }

type fixture struct {
	repo     *flakyRepo
	store    *CredentialStore
	tokens   *TokenManager
	notifier *fakeNotifier
	cache    *fakeCache
	svc      *AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := &flakyRepo{MemoryUserRepo: repository.NewMemoryUserRepo()}
	store, err := NewCredentialStore(repo, bcrypt.MinCost)
	require.NoError(t, err)
	tokens := NewTokenManager(store, "test-secret")
	f := &fixture{
		repo:     repo,
		store:    store,
		tokens:   tokens,
		notifier: &fakeNotifier{},
		cache:    &fakeCache{},
	}
	f.svc = NewAccountService(store, tokens, NewAvatarProcessor(), f.notifier, f.cache, nil)
	return f
}

func validUser() NewUser {
	return NewUser{Name: "Ann", Email: "ann@example.com", Password: "red12345!", Age: 27}
}
