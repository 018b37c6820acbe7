// Package cache mirrors the last known link collection on the device.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
	"github.com/MrSnakeDoc/linkshelf/internal/storage"
)

// Cache is a dumb last-write-wins mirror. It holds no merge logic.
type Cache struct {
	kv     storage.Store
	logger logger.Logger
}

func New(kv storage.Store, log logger.Logger) *Cache {
	return &Cache{kv: kv, logger: log}
}

// Read returns the cached links, or an empty slice when nothing is cached.
// A corrupt entry is logged and treated as empty.
func (c *Cache) Read(ctx context.Context) ([]domain.Link, error) {
	values, err := c.kv.Get(ctx, storage.KeySavedLinks)
	if err != nil {
		return []domain.Link{}, fmt.Errorf("failed to read link cache: %w", err)
	}

	raw, ok := values[storage.KeySavedLinks]
	if !ok || len(raw) == 0 {
		return []domain.Link{}, nil
	}

	var links []domain.Link
	if err := json.Unmarshal(raw, &links); err != nil {
		c.logger.Warn("discarding undecodable link cache", logger.Error(err))
		return []domain.Link{}, nil
	}
	if links == nil {
		links = []domain.Link{}
	}
	return links, nil
}

// Write replaces the cached collection.
func (c *Cache) Write(ctx context.Context, links []domain.Link) error {
	if links == nil {
		links = []domain.Link{}
	}
	data, err := json.Marshal(links)
	if err != nil {
		return fmt.Errorf("failed to marshal links: %w", err)
	}
	if err := c.kv.Set(ctx, map[string][]byte{storage.KeySavedLinks: data}); err != nil {
		return fmt.Errorf("failed to write link cache: %w", err)
	}
	return nil
}
