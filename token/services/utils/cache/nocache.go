/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cache

import "sync/atomic"

// NoCache never stores anything; every GetOrLoad runs the loader.
type NoCache[T any] struct {
	misses atomic.Uint64
}

func NewNoCache[T any]() *NoCache[T] {
	return &NoCache[T]{}
}

func (n *NoCache[T]) Get(string) (T, bool) {
	var zero T
	n.misses.Add(1)
	return zero, false
}

func (n *NoCache[T]) GetOrLoad(_ string, loader func() (T, error)) (T, bool, error) {
	n.misses.Add(1)
	v, err := loader()
	return v, false, err
}

func (n *NoCache[T]) Add(string, T) {}

func (n *NoCache[T]) Delete(string) {}

func (n *NoCache[T]) Stats() Stats {
	return Stats{Misses: n.misses.Load()}
}
