// Package credstore holds small string key/value records that must survive a
// process restart, such as a client session token.
//
// Drivers: Memory (tests, throwaway sessions), File (a 0600 JSON document) and
// the sqlite subpackage.
package credstore

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("credstore: not found")

type Store interface {
	// Get returns ErrNotFound when key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Set writes a single key.
	Set(ctx context.Context, key, value string) error

	// SetMany writes every pair or none of them.
	SetMany(ctx context.Context, kv map[string]string) error

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	Close() error
}
