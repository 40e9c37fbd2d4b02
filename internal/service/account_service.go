// Package service holds the account domain: credential storage, session
// tokens, avatar normalization and the AccountService that orchestrates
// them for the HTTP handlers.
package service

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/account-api/internal/model"
	"github.com/iliyamo/account-api/internal/notify"
)

// AvatarCache drops cached avatar responses after the avatar changed.
type AvatarCache interface {
	Purge(ctx context.Context, userID string)
}

// Session is returned by register and login.
type Session struct {
	User  model.UserView `json:"user"`
	Token string         `json:"token"`
}

// AccountService implements the account operations behind the HTTP API.
type AccountService struct {
	store    *CredentialStore
	tokens   *TokenManager
	avatars  *AvatarProcessor
	notifier notify.Notifier
	cache    AvatarCache
	log      *zap.Logger
}

// NewAccountService wires the collaborators.  cache may be nil.
func NewAccountService(store *CredentialStore, tokens *TokenManager, avatars *AvatarProcessor,
	notifier notify.Notifier, cache AvatarCache, log *zap.Logger) *AccountService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountService{
		store:    store,
		tokens:   tokens,
		avatars:  avatars,
		notifier: notifier,
		cache:    cache,
		log:      log,
	}
}

// Authenticate resolves a bearer token to its user.
func (s *AccountService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	return s.tokens.Verify(ctx, token)
}

// Register creates the user, fires the welcome email and opens a session.
func (s *AccountService) Register(ctx context.Context, in NewUser) (Session, error) {
	u, err := s.store.Create(ctx, in)
	if err != nil {
		return Session{}, err
	}
	s.notify("welcome", func() { s.notifier.SendWelcome(u.Email, u.Name) })

	tok, err := s.tokens.Issue(ctx, u)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u.View(), Token: tok}, nil
}

// Login checks the credentials and opens a new session.
func (s *AccountService) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.store.FindByCredentials(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	tok, err := s.tokens.Issue(ctx, u)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u.View(), Token: tok}, nil
}

// Logout ends the session identified by token; other sessions stay open.
func (s *AccountService) Logout(ctx context.Context, u *model.User, token string) error {
	return s.tokens.Revoke(ctx, u, token)
}

// LogoutAll ends every session of u.
func (s *AccountService) LogoutAll(ctx context.Context, u *model.User) error {
	return s.tokens.RevokeAll(ctx, u)
}

// Profile returns the public representation of u.
func (s *AccountService) Profile(u *model.User) model.UserView {
	return u.View()
}

// UpdateProfile applies an allow-listed partial update.  Nothing is applied
// when any key is disallowed or any value fails validation.
func (s *AccountService) UpdateProfile(ctx context.Context, u *model.User, body map[string]json.RawMessage) (model.UserView, error) {
	upd, err := ParseProfileUpdate(body)
	if err != nil {
		return model.UserView{}, err
	}

	next := u.Clone()
	if upd.Name != nil {
		next.Name = *upd.Name
	}
	if upd.Age != nil {
		next.Age = *upd.Age
	}
	if upd.Email != nil {
		next.Email = *upd.Email
	}
	if upd.Password != nil {
		if *upd.Password == "" {
			return model.UserView{}, invalid("password", "is required")
		}
		next.SetPassword(*upd.Password)
	}
	if err := s.store.Save(ctx, next); err != nil {
		return model.UserView{}, err
	}
	*u = *next
	return u.View(), nil
}

// DeleteAccount sends the cancellation email and removes u.  A failing
// notifier never prevents the removal.
func (s *AccountService) DeleteAccount(ctx context.Context, u *model.User) (model.UserView, error) {
	s.notify("cancellation", func() { s.notifier.SendCancellation(u.Email, u.Name) })

	if err := s.store.Remove(ctx, u); err != nil {
		return model.UserView{}, err
	}
	s.purge(ctx, u.ID)
	return u.View(), nil
}

// UploadAvatar normalizes raw and stores it as u's avatar.  On any error
// the previously stored avatar is left as it was.
func (s *AccountService) UploadAvatar(ctx context.Context, u *model.User, filename string, raw []byte) error {
	img, err := s.avatars.Normalize(filename, raw)
	if err != nil {
		return err
	}
	next := u.Clone()
	next.Avatar = img
	if err := s.store.Save(ctx, next); err != nil {
		return err
	}
	*u = *next
	s.purge(ctx, u.ID)
	return nil
}

// DeleteAvatar clears u's avatar.  Clearing an absent avatar succeeds.
func (s *AccountService) DeleteAvatar(ctx context.Context, u *model.User) error {
	next := u.Clone()
	next.Avatar = nil
	if err := s.store.Save(ctx, next); err != nil {
		return err
	}
	*u = *next
	s.purge(ctx, u.ID)
	return nil
}

// Avatar returns the stored PNG of the user with the given id.  An unknown
// id and a user without avatar are both reported as ErrNotFound.
func (s *AccountService) Avatar(ctx context.Context, id string) ([]byte, error) {
	u, err := s.store.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(u.Avatar) == 0 {
		return nil, ErrNotFound
	}
	return u.Avatar, nil
}

func (s *AccountService) notify(kind string, send func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("notifier panicked", zap.String("kind", kind), zap.Any("panic", r))
		}
	}()
	send()
}

func (s *AccountService) purge(ctx context.Context, userID string) {
	if s.cache != nil {
		s.cache.Purge(ctx, userID)
	}
}
