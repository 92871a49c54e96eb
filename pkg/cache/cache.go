// Package cache stores JSON-encoded values by key.
package cache

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the backend cannot be reached.
var ErrUnavailable = errors.New("cache unavailable")

type Cache interface {
	// Get decodes the value at key into dst. found is false on a miss.
	Get(ctx context.Context, key string, dst interface{}) (found bool, err error)
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, keys ...string) error
}

// Nop never stores anything. Used when no Redis URL is configured.
type Nop struct{}

func (Nop) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (Nop) Set(context.Context, string, interface{}) error         { return nil }
func (Nop) Delete(context.Context, ...string) error                { return nil }
