package prefs

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/cartsync/internal/common"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteRepository(db)
}

func TestPrefs_SetGet(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, KeyRememberEmail, "a@example.com"))

	got, err := repo.Get(ctx, KeyRememberEmail)
	require.NoError(t, err)
	require.Equal(t, "a@example.com", got)
}

func TestPrefs_SetOverwrites(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, KeyRefreshToken, "one"))
	require.NoError(t, repo.Set(ctx, KeyRefreshToken, "two"))

	got, err := repo.Get(ctx, KeyRefreshToken)
	require.NoError(t, err)
	require.Equal(t, "two", got)
}

func TestPrefs_GetMissing(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.Get(context.Background(), "never-set")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestPrefs_DeleteAndClear(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, KeyRememberEmail, "a@example.com"))
	require.NoError(t, repo.Set(ctx, KeyRefreshToken, "tok"))

	require.NoError(t, repo.Delete(ctx, KeyRememberEmail))
	_, err := repo.Get(ctx, KeyRememberEmail)
	require.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, repo.Clear(ctx))
	_, err = repo.Get(ctx, KeyRefreshToken)
	require.ErrorIs(t, err, common.ErrNotFound)
}
