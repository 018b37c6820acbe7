package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "linkshelf.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Set(ctx, map[string][]byte{
		"apiKey":     []byte("secret"),
		"savedLinks": []byte("[]"),
	}))

	got, err := s.Get(ctx, "apiKey", "savedLinks", "absent")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "secret", string(got["apiKey"]))
	assert.Equal(t, "[]", string(got["savedLinks"]))
}

func TestSetOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Set(ctx, map[string][]byte{"apiKey": []byte("old")}))
	require.NoError(t, s.Set(ctx, map[string][]byte{"apiKey": []byte("new")}))

	got, err := s.Get(ctx, "apiKey")
	require.NoError(t, err)
	assert.Equal(t, "new", string(got["apiKey"]))
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Set(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}))
	require.NoError(t, s.Remove(ctx, "a", "zzz"))

	got, err := s.Get(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"b": []byte("2")}, got)
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "linkshelf.db")

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, map[string][]byte{"apiKey": []byte("kept")}))
	require.NoError(t, s.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "apiKey")
	require.NoError(t, err)
	assert.Equal(t, "kept", string(got["apiKey"]))
}
