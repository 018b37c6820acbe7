// Package credential persists the API key used against the remote service.
package credential

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/linkshelf/internal/storage"
)

// Store is a pass-through over the storage substrate. It never validates.
type Store struct {
	kv storage.Store
}

func NewStore(kv storage.Store) *Store {
	return &Store{kv: kv}
}

// Get returns the stored API key, or "" when none is set.
func (s *Store) Get(ctx context.Context) (string, error) {
	values, err := s.kv.Get(ctx, storage.KeyAPIKey)
	if err != nil {
		return "", fmt.Errorf("failed to read api key: %w", err)
	}
	return string(values[storage.KeyAPIKey]), nil
}

func (s *Store) Set(ctx context.Context, apiKey string) error {
	if err := s.kv.Set(ctx, map[string][]byte{storage.KeyAPIKey: []byte(apiKey)}); err != nil {
		return fmt.Errorf("failed to save api key: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Remove(ctx, storage.KeyAPIKey); err != nil {
		return fmt.Errorf("failed to clear api key: %w", err)
	}
	return nil
}

// Redact keeps the last four characters of a key for logs.
func Redact(apiKey string) string {
	if apiKey == "" {
		return "unset"
	}
	if len(apiKey) > 8 {
		return "***" + apiKey[len(apiKey)-4:]
	}
	return "***"
}
