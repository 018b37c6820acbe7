// Package storage defines the key-value substrate that backs the credential
// store and the local link cache.
package storage

import "context"

// Store is an asynchronous key-value store without transactions.
//
// Get returns only the keys that exist; callers apply their own defaults.
type Store interface {
	Get(ctx context.Context, keys ...string) (map[string][]byte, error)
	Set(ctx context.Context, values map[string][]byte) error
	Remove(ctx context.Context, keys ...string) error
	Close() error
}

// Pinger is implemented by stores backed by a remote server.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Well-known keys.
const (
	KeyAPIKey     = "apiKey"
	KeySavedLinks = "savedLinks"
)
