package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/agrowcrop/pkg/credstore"
	"github.com/aussiebroadwan/agrowcrop/pkg/credstore/sqlite"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, path string) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var _ credstore.Store = (*sqlite.Store)(nil)

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := newTestStore(t, filepath.Join(t.TempDir(), "creds.db"))
	require.NoError(t, s.Ping(ctx))

	_, err := s.Get(ctx, "agro_token")
	require.ErrorIs(t, err, credstore.ErrNotFound)

	require.NoError(t, s.SetMany(ctx, map[string]string{
		"agro_token": "tok",
		"agro_user":  `{"id":"9876543210"}`,
	}))
	require.NoError(t, s.Set(ctx, "agro_token", "tok-2"))

	v, err := s.Get(ctx, "agro_token")
	require.NoError(t, err)
	require.Equal(t, "tok-2", v)

	require.NoError(t, s.Delete(ctx, "agro_token", "agro_user"))
	_, err = s.Get(ctx, "agro_user")
	require.ErrorIs(t, err, credstore.ErrNotFound)
}

func TestStoreReopenKeepsDataAndMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "creds.db")

	s1, err := sqlite.NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Set(ctx, "agro_token", "survives"))
	require.NoError(t, s1.Close())

	s2 := newTestStore(t, path)
	require.NoError(t, s2.ApplyMigrations())

	v, err := s2.Get(ctx, "agro_token")
	require.NoError(t, err)
	require.Equal(t, "survives", v)
}
