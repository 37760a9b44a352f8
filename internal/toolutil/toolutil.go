// Package toolutil provides shared helper functions for go_pod MCP tools.
package toolutil

import (
	"context"

	"github.com/anatolykoptev/go_pod/internal/engine"
)

// CacheLoadJSON tries to load a cached value of type T from the engine cache.
// Returns the decoded value and true on hit; zero value and false on miss or decode error.
func CacheLoadJSON[T any](ctx context.Context, key string) (T, bool) {
	return engine.CacheLoadJSON[T](ctx, key)
}

// CacheStoreJSON marshals v and stores it in the engine cache.
func CacheStoreJSON[T any](ctx context.Context, key string, v T) {
	engine.CacheStoreJSON(ctx, key, v)
}

// ClampRadius bounds a context radius to a sane window.
func ClampRadius(r, def, max int) int {
	if r <= 0 {
		return def
	}
	if r > max {
		return max
	}
	return r
}
