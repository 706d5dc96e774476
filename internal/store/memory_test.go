package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestMemoryStore_GetNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), CollectionListings, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_UpsertGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	rec := json.RawMessage(`{"id":"a","capacity":2}`)
	if err := s.Upsert(ctx, CollectionListings, "a", rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.Get(ctx, CollectionListings, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != string(rec) {
		t.Fatalf("got %s, want %s", got, rec)
	}

	// Replacing the record fully overwrites it.
	rec2 := json.RawMessage(`{"id":"a","capacity":3}`)
	if err := s.Upsert(ctx, CollectionListings, "a", rec2); err != nil {
		t.Fatalf("upsert replace: %v", err)
	}
	got, _ = s.Get(ctx, CollectionListings, "a")
	if string(got) != string(rec2) {
		t.Fatalf("got %s, want %s", got, rec2)
	}
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.Upsert(ctx, CollectionBookings, "b", json.RawMessage(`{"x":1}`))

	got, _ := s.Get(ctx, CollectionBookings, "b")
	got[0] = '!'

	again, _ := s.Get(ctx, CollectionBookings, "b")
	if string(again) != `{"x":1}` {
		t.Fatalf("stored record mutated through returned slice: %s", again)
	}
}

func TestMemoryStore_ListAndRemove(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.Upsert(ctx, CollectionListings, "a", json.RawMessage(`{}`))
	_ = s.Upsert(ctx, CollectionListings, "b", json.RawMessage(`{}`))
	_ = s.Upsert(ctx, CollectionBookings, "c", json.RawMessage(`{}`))

	all, err := s.List(ctx, CollectionListings)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d listings, want 2", len(all))
	}

	if err := s.Remove(ctx, CollectionListings, "a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	// Removing a missing record is not an error.
	if err := s.Remove(ctx, CollectionListings, "a"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
	all, _ = s.List(ctx, CollectionListings)
	if len(all) != 1 {
		t.Fatalf("got %d listings after remove, want 1", len(all))
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("rec-%d", n)
			_ = s.Upsert(ctx, CollectionBookings, id, json.RawMessage(`{}`))
			_, _ = s.Get(ctx, CollectionBookings, id)
			_, _ = s.List(ctx, CollectionBookings)
		}(i)
	}
	wg.Wait()

	all, err := s.List(ctx, CollectionBookings)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 50 {
		t.Fatalf("got %d records, want 50", len(all))
	}
}
