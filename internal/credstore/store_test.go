package credstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "creds.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	expiry := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Upsert(ctx, Credential{
		UserID:       "u1",
		AccessToken:  "at",
		RefreshToken: "rt",
		Expiry:       expiry,
		Scopes:       []string{"calendar", "gmail.send"},
	}))

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "at", got.AccessToken)
	assert.Equal(t, "rt", got.RefreshToken)
	assert.True(t, got.Expiry.Equal(expiry))
	assert.Equal(t, []string{"calendar", "gmail.send"}, got.Scopes)
}

func TestUpsertReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, Credential{UserID: "u1", AccessToken: "old", RefreshToken: "rt", Expiry: time.Now()}))
	require.NoError(t, s.Upsert(ctx, Credential{UserID: "u1", AccessToken: "new", RefreshToken: "rt2", Expiry: time.Now()}))

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.AccessToken)
	assert.Equal(t, "rt2", got.RefreshToken)
}

func TestGetUnknownUser(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, Credential{UserID: "u1", AccessToken: "at", RefreshToken: "rt", Expiry: time.Now()}))
	require.NoError(t, s.Delete(ctx, "u1"))
	require.NoError(t, s.Delete(ctx, "u1"))

	_, err := s.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}
