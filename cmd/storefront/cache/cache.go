package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Store is a TTL key/value cache. Values are JSON encoded, so Get decodes
// into dst and callers never share memory with the cache.
type Store interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}

// Key joins a namespace with a sha256 digest of the remaining parts, e.g.
// Key("products", "search=x", "1", "15") => "products:3f2a...".
func Key(namespace string, parts ...string) string {
	hasher := sha256.New()
	hasher.Write([]byte(strings.Join(parts, "\x00")))
	return namespace + ":" + hex.EncodeToString(hasher.Sum(nil))
}

// Remember returns the cached value for key, or calls load and stores its
// result for ttl. Cache failures fall through to load.
func Remember[T any](ctx context.Context, s Store, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, bool, error) {
	return RememberIf(ctx, s, key, ttl, load, nil)
}

// RememberIf is Remember for values that can go stale while load runs. The
// loaded value is only stored when fresh reports true, and is removed again
// when fresh no longer holds once it is stored. A nil fresh always holds.
func RememberIf[T any](ctx context.Context, s Store, key string, ttl time.Duration, load func(context.Context) (T, error), fresh func() bool) (T, bool, error) {
	var cached T
	if s != nil {
		if ok, err := s.Get(ctx, key, &cached); err == nil && ok {
			return cached, true, nil
		}
	}

	value, err := load(ctx)
	if err != nil {
		return value, false, err
	}

	if s == nil || (fresh != nil && !fresh()) {
		return value, false, nil
	}
	_ = s.Set(ctx, key, value, ttl)
	if fresh != nil && !fresh() {
		_ = s.Delete(ctx, key)
	}
	return value, false, nil
}
