// Package store defines the key-value Record Store the admission subsystem
// persists through, plus its memory, Redis, and Postgres drivers. The store is
// durable but not transactional across collections: callers must tolerate
// read-then-write races and re-read records before mutating them.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

// Collection names used by the admission subsystem.
const (
	CollectionListings = "listings"
	CollectionBookings = "bookings"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a driver detects a concurrent write conflict
// (Redis WATCH abort, Postgres serialization failure). Callers retry the
// whole operation a bounded number of times.
var ErrConflict = errors.New("concurrent write conflict")

// RecordStore is the persistence boundary: raw JSON records grouped into named
// collections. No multi-record transaction is offered; a just-written record
// may briefly be served stale by some backends.
type RecordStore interface {
	// Get returns the record with the given id, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)

	// List returns every record in the collection, keyed by id.
	List(ctx context.Context, collection string) (map[string]json.RawMessage, error)

	// Upsert creates or fully replaces the record with the given id.
	Upsert(ctx context.Context, collection, id string, record json.RawMessage) error

	// Remove deletes the record; removing a missing record is not an error.
	Remove(ctx context.Context, collection, id string) error
}
