package cache

import (
	"context"
	"time"
)

// BytesCache is a best-effort byte cache. A miss and an error are handled the
// same way by callers: go to storage.
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// VersionedCache adds a per-key version counter. Writers bump the version
// before invalidating; readers fill only if the version they saw before
// loading from storage is still current.
type VersionedCache interface {
	BytesCache
	Version(ctx context.Context, verKey string) (int64, error)
	Bump(ctx context.Context, verKey string, ttl time.Duration) error
	SetIfVersion(ctx context.Context, verKey string, ver int64, key string, value []byte, ttl time.Duration) (bool, error)
}
