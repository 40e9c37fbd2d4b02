package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/iliyamo/account-api/internal/model"
	"github.com/iliyamo/account-api/internal/repository"
	"github.com/iliyamo/account-api/internal/utils"
)

// NewUser carries the fields accepted at registration.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Age      int
}

type profileRules struct {
	Name  string `validate:"required"`
	Email string `validate:"required,email"`
	Age   int    `validate:"gte=0"`
}

type passwordRules struct {
	Password string `validate:"required,min=7,max=72,nopassword"`
}

// CredentialStore validates and persists user records.  It is the only
// place that turns a plaintext password into a hash.
type CredentialStore struct {
	repo      repository.UserRepository
	cost      int
	validate  *validator.Validate
	dummyHash string
}

// NewCredentialStore builds a store hashing with the given bcrypt cost.
func NewCredentialStore(repo repository.UserRepository, cost int) (*CredentialStore, error) {
	v := validator.New()
	if err := v.RegisterValidation("nopassword", func(fl validator.FieldLevel) bool {
		return !strings.Contains(strings.ToLower(fl.Field().String()), "password")
	}); err != nil {
		return nil, err
	}
	// Compared against on unknown emails so both failure paths cost one bcrypt run.
	dummy, err := utils.HashPassword(uuid.NewString(), cost)
	if err != nil {
		return nil, err
	}
	return &CredentialStore{repo: repo, cost: cost, validate: v, dummyHash: dummy}, nil
}

// Create validates the fields, hashes the password and inserts a new user.
func (s *CredentialStore) Create(ctx context.Context, in NewUser) (*model.User, error) {
	u := &model.User{
		ID:    uuid.NewString(),
		Name:  in.Name,
		Email: in.Email,
		Age:   in.Age,
	}
	u.SetPassword(in.Password)
	if _, ok := u.PendingPassword(); !ok {
		return nil, invalid("password", "is required")
	}
	prevHash, err := s.prepare(u)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, u); err != nil {
		u.PasswordHash = prevHash
		return nil, mapWriteError("create user", err)
	}
	u.ClearPendingPassword()
	return u, nil
}

// Save re-validates u and writes it.  A password set through SetPassword
// is hashed first; an unchanged PasswordHash is written as is.
func (s *CredentialStore) Save(ctx context.Context, u *model.User) error {
	prevHash, err := s.prepare(u)
	if err != nil {
		return err
	}
	if err := s.repo.Update(ctx, u); err != nil {
		u.PasswordHash = prevHash
		return mapWriteError("save user", err)
	}
	u.ClearPendingPassword()
	return nil
}

// FindByID loads a user or returns ErrNotFound.
func (s *CredentialStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistence("find user", err)
	}
	return u, nil
}

// FindByCredentials returns the user owning email when plain matches the
// stored hash.  Unknown email and wrong password both yield ErrAuth.
func (s *CredentialStore) FindByCredentials(ctx context.Context, email, plain string) (*model.User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		utils.VerifyPassword(s.dummyHash, plain)
		return nil, ErrAuth
	}
	if err != nil {
		return nil, persistence("find user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, plain) {
		return nil, ErrAuth
	}
	return u, nil
}

// Remove deletes the user record.
func (s *CredentialStore) Remove(ctx context.Context, u *model.User) error {
	err := s.repo.Delete(ctx, u.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return persistence("remove user", err)
	}
	return nil
}

// prepare normalizes and validates u, hashing a pending password.  It
// returns the hash u held before so a failed write can restore it.
func (s *CredentialStore) prepare(u *model.User) (string, error) {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	if err := s.check(profileRules{Name: u.Name, Email: u.Email, Age: u.Age}); err != nil {
		return "", err
	}

	prev := u.PasswordHash
	plain, ok := u.PendingPassword()
	if !ok {
		return prev, nil
	}
	if err := s.check(passwordRules{Password: plain}); err != nil {
		return "", err
	}
	if len(plain) > 72 { // bcrypt input limit counts bytes, not runes
		return "", invalid("password", "must be at most 72 bytes")
	}
	hash, err := utils.HashPassword(plain, s.cost)
	if err != nil {
		return "", err
	}
	u.PasswordHash = hash
	return prev, nil
}

func (s *CredentialStore) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return invalid(strings.ToLower(fe.Field()), reasonFor(fe))
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "is invalid"
	case "gte":
		return "must be a positive number"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "nopassword":
		return `cannot contain "password"`
	}
	return "is invalid"
}

func mapWriteError(op string, err error) error {
	if errors.Is(err, repository.ErrEmailExists) {
		return invalid("email", "is already in use")
	}
	return persistence(op, err)
}
