package service

import (
	"context"
	"errors"

	"github.com/iliyamo/account-api/internal/model"
	"github.com/iliyamo/account-api/internal/utils"
)

// userStore is the part of CredentialStore the token manager needs.
type userStore interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	Save(ctx context.Context, u *model.User) error
}

// TokenManager issues bearer session tokens and enforces revocation by
// membership: a token is valid only while it is in its owner's collection.
type TokenManager struct {
	store  userStore
	secret string
}

func NewTokenManager(store userStore, secret string) *TokenManager {
	return &TokenManager{store: store, secret: secret}
}

// Issue signs a new token for u, appends it and persists u.
func (m *TokenManager) Issue(ctx context.Context, u *model.User) (string, error) {
	tok, err := utils.NewSessionToken(m.secret, u.ID)
	if err != nil {
		return "", err
	}
	u.Tokens = append(u.Tokens, model.SessionToken{Token: tok})
	if err := m.store.Save(ctx, u); err != nil {
		u.Tokens = u.Tokens[:len(u.Tokens)-1]
		return "", err
	}
	return tok, nil
}

// Verify resolves raw to its owner.  A bad signature, a deleted owner and
// a revoked token all yield ErrAuth.
func (m *TokenManager) Verify(ctx context.Context, raw string) (*model.User, error) {
	id, err := utils.ParseSessionToken(m.secret, raw)
	if err != nil {
		return nil, ErrAuth
	}
	u, err := m.store.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrAuth
	}
	if err != nil {
		return nil, err
	}
	if !u.HasToken(raw) {
		return nil, ErrAuth
	}
	return u, nil
}

// Revoke removes exactly the token string raw from u and persists u.
func (m *TokenManager) Revoke(ctx context.Context, u *model.User, raw string) error {
	kept := make([]model.SessionToken, 0, len(u.Tokens))
	for _, t := range u.Tokens {
		if t.Token != raw {
			kept = append(kept, t)
		}
	}
	u.Tokens = kept
	return m.store.Save(ctx, u)
}

// RevokeAll empties u's token collection and persists u.
func (m *TokenManager) RevokeAll(ctx context.Context, u *model.User) error {
	u.Tokens = []model.SessionToken{}
	return m.store.Save(ctx, u)
}
