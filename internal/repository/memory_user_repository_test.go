package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/account-api/internal/model"
	repo "github.com/iliyamo/account-api/internal/repository"
)

func TestMemoryUserRepo_Lifecycle(t *testing.T) {
	ctx := context.Background()
	r := repo.NewMemoryUserRepo()

	u := &model.User{ID: "u1", Name: "Ann", Email: "Ann@Example.com"}
	require.NoError(t, r.Insert(ctx, u))

	got, err := r.GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	require.Equal(t, "u1", got.ID)

	got.Name = "Changed"
	again, err := r.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "Ann", again.Name, "returned records must not alias the store")

	again.Email = "new@example.com"
	require.NoError(t, r.Update(ctx, again))
	_, err = r.GetByEmail(ctx, "ann@example.com")
	require.ErrorIs(t, err, repo.ErrNotFound)

	require.NoError(t, r.Delete(ctx, "u1"))
	_, err = r.GetByID(ctx, "u1")
	require.ErrorIs(t, err, repo.ErrNotFound)
	require.ErrorIs(t, r.Delete(ctx, "u1"), repo.ErrNotFound)
}

func TestMemoryUserRepo_EmailUniqueness(t *testing.T) {
	ctx := context.Background()
	r := repo.NewMemoryUserRepo()

	require.NoError(t, r.Insert(ctx, &model.User{ID: "u1", Email: "a@example.com"}))
	require.ErrorIs(t, r.Insert(ctx, &model.User{ID: "u2", Email: "A@example.com"}), repo.ErrEmailExists)

	require.NoError(t, r.Insert(ctx, &model.User{ID: "u2", Email: "b@example.com"}))
	require.ErrorIs(t, r.Update(ctx, &model.User{ID: "u2", Email: "a@example.com"}), repo.ErrEmailExists)
}

func TestMemoryUserRepo_UpdateMissing(t *testing.T) {
	r := repo.NewMemoryUserRepo()
	require.ErrorIs(t, r.Update(context.Background(), &model.User{ID: "nope"}), repo.ErrNotFound)
}
