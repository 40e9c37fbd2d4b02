package repository

import (
	"context"

	"github.com/iliyamo/account-api/internal/model"
)

// UserRepository is implemented by every user storage backend.  Each
// record is read and written whole: Update replaces all fields, including
// the token collection and avatar, so concurrent writers to the same user
// resolve as last-write-wins.
type UserRepository interface {
	Insert(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id string) error
}
