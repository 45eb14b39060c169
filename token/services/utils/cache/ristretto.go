/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cache

import (
	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"
)

const (
	// ZeroCost makes ristretto fall back to the Cost function of its configuration
	ZeroCost = 0

	DefaultMaxCost     = 1 << 20
	DefaultBufferItems = 64
	countersPerEntry   = 10
)

type ristrettoCache[T any] struct {
	cache *ristretto.Cache[string, T]
	sfg   singleflight.Group
}

// NewRistrettoCacheWithSize returns a cache holding about maxEntries values.
func NewRistrettoCacheWithSize[T any](maxEntries int64) (*ristrettoCache[T], error) {
	rCache, err := ristretto.NewCache[string, T](&ristretto.Config[string, T]{
		NumCounters: maxEntries * countersPerEntry,
		MaxCost:     maxEntries,
		BufferItems: DefaultBufferItems,
		Metrics:     true,
		Cost: func(T) int64 {
			return 1
		},
	})
	if err != nil {
		return nil, err
	}
	return &ristrettoCache[T]{cache: rCache}, nil
}

func (c *ristrettoCache[T]) Get(key string) (T, bool) {
	return c.cache.Get(key)
}

// Add does not wait for the write buffer; a value may be invisible to Get for a short while.
func (c *ristrettoCache[T]) Add(key string, value T) {
	c.cache.Set(key, value, ZeroCost)
}

func (c *ristrettoCache[T]) Delete(key string) {
	c.cache.Del(key)
}

func (c *ristrettoCache[T]) Stats() Stats {
	return Stats{Hits: c.cache.Metrics.Hits(), Misses: c.cache.Metrics.Misses()}
}

func (c *ristrettoCache[T]) GetOrLoad(key string, loader func() (T, error)) (T, bool, error) {
	var zero T

	if value, found := c.Get(key); found {
		return value, true, nil
	}

	// callers coalesced on an in-flight load still missed the cache
	res, err, _ := c.sfg.Do(key, func() (interface{}, error) {
		v, err := loader()
		if err != nil {
			return nil, err
		}
		c.Add(key, v)
		return v, nil
	})
	if err != nil {
		return zero, false, err
	}
	return res.(T), false, nil
}
