// Package service implements the admission controller and status synchronizer
// on top of the typed repositories. All capacity decisions for one listing are
// serialized through a shared per-listing lock registry; different listings
// never contend.
package service

import "sync"

// LockRegistry hands out one mutex per listing id. The record store offers no
// transactions, so read-compute-write cycles for a single listing must be
// mutually exclusive in-process.
type LockRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLockRegistry constructs an empty registry.
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for the given listing id, creating it on first use,
// and returns the corresponding unlock function. Entries are kept for the
// process lifetime; the registry grows with the number of distinct listings,
// which is small relative to the booking volume.
func (r *LockRegistry) Lock(id string) func() {
	r.mu.Lock()
	m, ok := r.locks[id]
	if !ok {
		m = &sync.Mutex{}
		r.locks[id] = m
	}
	r.mu.Unlock()

	m.Lock()
	return m.Unlock
}
