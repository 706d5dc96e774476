package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rentvault/booking-admission/internal/model"
	"github.com/rentvault/booking-admission/internal/store"
)

// BookingRepository handles persistence for bookings.
type BookingRepository struct {
	store store.RecordStore
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(s store.RecordStore) *BookingRepository {
	return &BookingRepository{store: s}
}

// Create inserts a new booking with a generated UUID. Bookings always start
// pending and unpaid; payment confirmation arrives as a separate event.
func (r *BookingRepository) Create(ctx context.Context, req model.CreateBookingRequest) (*model.Booking, error) {
	now := time.Now().UTC()
	booking := &model.Booking{
		ID:            uuid.New().String(),
		PropertyID:    req.PropertyID,
		SelectedRoom:  req.SelectedRoom,
		Status:        model.BookingPending,
		PaymentStatus: model.PaymentUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := r.Save(ctx, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

// GetByID returns a single booking or ErrNotFound.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	raw, err := r.store.Get(ctx, store.CollectionBookings, id)
	if err != nil {
		return nil, err
	}
	var booking model.Booking
	if err := json.Unmarshal(raw, &booking); err != nil {
		return nil, fmt.Errorf("decode booking %s: %w", id, err)
	}
	return &booking, nil
}

// ListByProperty returns all bookings targeting the given listing, oldest
// first. The store has no secondary indexes, so the filter runs client-side.
func (r *BookingRepository) ListByProperty(ctx context.Context, propertyID string) ([]model.Booking, error) {
	raw, err := r.store.List(ctx, store.CollectionBookings)
	if err != nil {
		return nil, err
	}
	var bookings []model.Booking
	for id, rec := range raw {
		var booking model.Booking
		if err := json.Unmarshal(rec, &booking); err != nil {
			return nil, fmt.Errorf("decode booking %s: %w", id, err)
		}
		if booking.PropertyID == propertyID {
			bookings = append(bookings, booking)
		}
	}
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
	})
	return bookings, nil
}

// Save writes the full booking record back to the store.
func (r *BookingRepository) Save(ctx context.Context, booking *model.Booking) error {
	raw, err := json.Marshal(booking)
	if err != nil {
		return fmt.Errorf("encode booking %s: %w", booking.ID, err)
	}
	return r.store.Upsert(ctx, store.CollectionBookings, booking.ID, raw)
}
