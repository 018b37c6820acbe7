package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
	"github.com/MrSnakeDoc/linkshelf/internal/storage"
	"github.com/MrSnakeDoc/linkshelf/internal/store/memory"
)

func TestReadEmpty(t *testing.T) {
	c := New(memory.NewStore(), logger.Nop())

	links, err := c.Read(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, links)
	assert.Empty(t, links)
}

func TestWriteThenRead(t *testing.T) {
	ctx := context.Background()
	c := New(memory.NewStore(), logger.Nop())
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	in := []domain.Link{
		{ID: 2, URL: "https://b.example", Title: "B", Tags: []string{"x"}, CreatedAt: created},
		{ID: 1, URL: "https://a.example", Title: "A", Tags: []string{}, CreatedAt: created.Add(-time.Hour)},
	}
	require.NoError(t, c.Write(ctx, in))

	out, err := c.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	require.NoError(t, c.Write(ctx, in[:1]))
	out, err = c.Read(ctx)
	require.NoError(t, err)
	assert.Len(t, out, 1, "last write wins")
}

func TestReadCorruptEntry(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	require.NoError(t, kv.Set(ctx, map[string][]byte{storage.KeySavedLinks: []byte("{not json")}))

	links, err := New(kv, logger.Nop()).Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, links)
}
