/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cache

// Cache memoises values derived from immutable inputs. Implementations are safe for concurrent use.
type Cache[T any] interface {
	Get(key string) (T, bool)
	// GetOrLoad returns the cached value or runs loader once per key, even under concurrent callers.
	// The boolean reports a cache hit.
	GetOrLoad(key string, loader func() (T, error)) (T, bool, error)
	Add(key string, value T)
	Delete(key string)
	Stats() Stats
}

// Stats is a snapshot of hit and miss counters.
type Stats struct {
	Hits   uint64
	Misses uint64
}

// Config selects and sizes a cache. MaxCost counts entries.
type Config struct {
	Enabled bool
	MaxCost int64
}

// New returns a ristretto backed cache, or a NoCache when caching is disabled.
func New[T any](c Config) (Cache[T], error) {
	if !c.Enabled {
		return NewNoCache[T](), nil
	}
	maxCost := c.MaxCost
	if maxCost <= 0 {
		maxCost = DefaultMaxCost
	}
	return NewRistrettoCacheWithSize[T](maxCost)
}
