package fakeuserrepo_test

import (
	"context"
	"testing"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	fakeuserrepo "github.com/jrsteele09/go-session-auth/users/repofake"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/stretchr/testify/require"
)

func TestFakeUserRepo(t *testing.T) {
	ctx := context.Background()
	repo := fakeuserrepo.NewFakeUserRepo()

	alice := &users.User{Username: "alice", PasswordHash: "h1", IsActive: true}
	require.NoError(t, repo.Create(ctx, alice))
	require.Equal(t, int64(1), alice.ID)
	require.False(t, alice.CreatedAt.IsZero())

	bob := &users.User{Username: "bob", PasswordHash: "h2", IsActive: true}
	require.NoError(t, repo.Create(ctx, bob))
	require.Equal(t, int64(2), bob.ID)

	err := repo.Create(ctx, &users.User{Username: "alice"})
	require.ErrorIs(t, err, apperrors.ErrUserExists)

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "h1", got.PasswordHash)

	// returned users are copies
	got.PasswordHash = "tampered"
	again, err := repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, "h1", again.PasswordHash)

	require.NoError(t, repo.Upsert(ctx, &users.User{Username: "alice", PasswordHash: "h3", IsActive: false}))
	got, err = repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(1), got.ID)
	require.Equal(t, "h3", got.PasswordHash)
	require.False(t, got.IsActive)

	list, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "alice", list[0].Username)

	list, err = repo.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "bob", list[0].Username)

	list, err = repo.List(ctx, 5, 1)
	require.NoError(t, err)
	require.Empty(t, list)

	require.NoError(t, repo.Delete(ctx, "bob"))
	_, err = repo.GetByUsername(ctx, "bob")
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)
	require.ErrorIs(t, repo.Delete(ctx, "bob"), apperrors.ErrUserNotFound)
	_, err = repo.GetByID(ctx, 99)
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)
}
