package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/rentvault/booking-admission/internal/events"
	"github.com/rentvault/booking-admission/internal/model"
	"github.com/rentvault/booking-admission/internal/repository"
	"github.com/rentvault/booking-admission/internal/store"
)

func intp(v int) *int { return &v }

// countingStore wraps a RecordStore and counts writes, so tests can assert
// that idempotent re-runs produce zero additional writes.
type countingStore struct {
	store.RecordStore
	mu      sync.Mutex
	upserts int
}

func (c *countingStore) Upsert(ctx context.Context, collection, id string, record json.RawMessage) error {
	c.mu.Lock()
	c.upserts++
	c.mu.Unlock()
	return c.RecordStore.Upsert(ctx, collection, id, record)
}

func (c *countingStore) writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.upserts
}

// failingStore wraps a RecordStore and fails selected operations, keyed by
// "collection/id".
type failingStore struct {
	store.RecordStore
	failGet    map[string]error
	failUpsert map[string]error
}

func (f *failingStore) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	if err, ok := f.failGet[collection+"/"+id]; ok {
		return nil, err
	}
	return f.RecordStore.Get(ctx, collection, id)
}

func (f *failingStore) Upsert(ctx context.Context, collection, id string, record json.RawMessage) error {
	if err, ok := f.failUpsert[collection+"/"+id]; ok {
		return err
	}
	return f.RecordStore.Upsert(ctx, collection, id, record)
}

// capturingPublisher records every rejection event.
type capturingPublisher struct {
	mu     sync.Mutex
	events []events.BookingRejected
}

func (p *capturingPublisher) PublishBookingRejected(_ context.Context, ev events.BookingRejected) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

func (p *capturingPublisher) all() []events.BookingRejected {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.BookingRejected, len(p.events))
	copy(out, p.events)
	return out
}

// env wires a full service stack over an in-memory store.
type env struct {
	raw       *countingStore
	listings  *repository.ListingRepository
	bookings  *repository.BookingRepository
	status    *StatusService
	admission *AdmissionService
	publisher *capturingPublisher
}

// newEnv builds the stack. base defaults to a fresh MemoryStore; pass a
// wrapped store to inject failures.
func newEnv(base store.RecordStore) *env {
	if base == nil {
		base = store.NewMemoryStore()
	}
	raw := &countingStore{RecordStore: base}
	listings := repository.NewListingRepository(raw)
	bookings := repository.NewBookingRepository(raw)
	locks := NewLockRegistry()
	publisher := &capturingPublisher{}
	status := NewStatusService(listings, bookings, locks)
	admission := NewAdmissionService(listings, bookings, status, publisher, locks)
	return &env{
		raw:       raw,
		listings:  listings,
		bookings:  bookings,
		status:    status,
		admission: admission,
		publisher: publisher,
	}
}

func (e *env) addListing(t *testing.T, capacity *int, rooms []int) *model.Listing {
	t.Helper()
	listing, err := e.listings.Create(context.Background(), model.CreateListingRequest{
		Title:          "test listing",
		Capacity:       capacity,
		RoomCapacities: rooms,
	})
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	return listing
}

func (e *env) addBooking(t *testing.T, propertyID string, room *int, status, payment string) *model.Booking {
	t.Helper()
	booking, err := e.bookings.Create(context.Background(), model.CreateBookingRequest{
		PropertyID:   propertyID,
		SelectedRoom: room,
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if status != model.BookingPending || payment != model.PaymentUnpaid {
		booking.Status = status
		booking.PaymentStatus = payment
		if err := e.bookings.Save(context.Background(), booking); err != nil {
			t.Fatalf("save booking: %v", err)
		}
	}
	return booking
}

func (e *env) bookingStatus(t *testing.T, id string) string {
	t.Helper()
	b, err := e.bookings.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get booking %s: %v", id, err)
	}
	return b.Status
}

func (e *env) listingStatus(t *testing.T, id string) string {
	t.Helper()
	l, err := e.listings.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get listing %s: %v", id, err)
	}
	return l.NormalizedStatus()
}
