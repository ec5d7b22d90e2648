package pgrepo_test

import (
	"context"
	"os"
	"testing"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/internal/utils"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/jrsteele09/go-session-auth/users/pgrepo"
	"github.com/stretchr/testify/require"
)

func TestPgUserRepo(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := pgrepo.Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := pgrepo.New(pool)
	require.NoError(t, repo.Migrate(ctx))
	// already applied versions are skipped
	require.NoError(t, repo.Migrate(ctx))

	var version int64
	require.NoError(t, pool.QueryRow(ctx, `SELECT max(version_id) FROM users_schema_version`).Scan(&version))
	require.GreaterOrEqual(t, version, int64(1))

	username := "pgtest-" + t.Name()
	t.Cleanup(func() { _ = repo.Delete(context.Background(), username) })

	u := &users.User{Username: username, Email: utils.Ptr("pg@example.com"), PasswordHash: "hash", IsActive: true}
	require.NoError(t, repo.Create(ctx, u))
	require.NotZero(t, u.ID)

	require.ErrorIs(t, repo.Create(ctx, &users.User{Username: username, PasswordHash: "x"}), apperrors.ErrUserExists)

	got, err := repo.GetByUsername(ctx, username)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, "pg@example.com", utils.Value(got.Email))

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, username, byID.Username)

	require.NoError(t, repo.Upsert(ctx, &users.User{Username: username, PasswordHash: "hash2", IsActive: false}))
	got, err = repo.GetByUsername(ctx, username)
	require.NoError(t, err)
	require.Equal(t, "hash2", got.PasswordHash)
	require.False(t, got.IsActive)

	list, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	require.NotEmpty(t, list)

	require.NoError(t, repo.Delete(ctx, username))
	_, err = repo.GetByUsername(ctx, username)
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)
}
