// Package cache stores solved placements so repeated runs of the same
// problem with the same settings skip the solve.
//
// Three backends implement [Cache]: [FileCache] for the CLI,
// [RedisCache] for placers sharing results across machines, and
// [NullCache] when caching is off. Keys come from a [Keyer], which hashes
// the problem and every setting that changes the result.
package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/analogplace/pkg/config"
	"github.com/matzehuels/analogplace/pkg/errors"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the value of key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero keeps the entry forever.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by backends that can drop every entry.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}

// DefaultDir returns the file cache directory below the user cache dir.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfig, err, "locate user cache directory")
	}
	return filepath.Join(base, config.DefaultCacheDir), nil
}

// New opens the backend selected by c.
func New(ctx context.Context, c config.Cache) (Cache, error) {
	switch c.Backend {
	case config.CacheNone:
		return NewNullCache(), nil
	case config.CacheRedis:
		rc, err := NewRedisCache(ctx, c.RedisAddr)
		if err != nil {
			return nil, err
		}
		return rc, nil
	case config.CacheFile, "":
		dir := c.Dir
		if dir == "" {
			d, err := DefaultDir()
			if err != nil {
				return nil, err
			}
			dir = d
		}
		fc, err := NewFileCache(dir)
		if err != nil {
			return nil, err
		}
		return fc, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Backend)
}
