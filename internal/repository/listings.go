// Package repository implements typed access to the listings and bookings
// collections on top of the raw Record Store. It owns JSON encoding and id
// minting; all capacity logic lives above it.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rentvault/booking-admission/internal/model"
	"github.com/rentvault/booking-admission/internal/store"
)

// ErrNotFound is returned when a requested resource does not exist.
// It aliases the store sentinel so callers can match either.
var ErrNotFound = store.ErrNotFound

// ListingRepository handles persistence for listings.
type ListingRepository struct {
	store store.RecordStore
}

// NewListingRepository constructs a ListingRepository.
func NewListingRepository(s store.RecordStore) *ListingRepository {
	return &ListingRepository{store: s}
}

// Create inserts a new listing with a generated UUID. New listings start
// available; the synchronizer owns the field from then on.
func (r *ListingRepository) Create(ctx context.Context, req model.CreateListingRequest) (*model.Listing, error) {
	now := time.Now().UTC()
	listing := &model.Listing{
		ID:                 uuid.New().String(),
		Title:              req.Title,
		Capacity:           req.Capacity,
		RoomCapacities:     req.RoomCapacities,
		AvailabilityStatus: model.StatusAvailable,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := r.Save(ctx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// GetByID returns a single listing or ErrNotFound.
func (r *ListingRepository) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	raw, err := r.store.Get(ctx, store.CollectionListings, id)
	if err != nil {
		return nil, err
	}
	var listing model.Listing
	if err := json.Unmarshal(raw, &listing); err != nil {
		return nil, fmt.Errorf("decode listing %s: %w", id, err)
	}
	return &listing, nil
}

// List returns all listings.
func (r *ListingRepository) List(ctx context.Context) ([]model.Listing, error) {
	raw, err := r.store.List(ctx, store.CollectionListings)
	if err != nil {
		return nil, err
	}
	listings := make([]model.Listing, 0, len(raw))
	for id, rec := range raw {
		var listing model.Listing
		if err := json.Unmarshal(rec, &listing); err != nil {
			return nil, fmt.Errorf("decode listing %s: %w", id, err)
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

// Save writes the full listing record back to the store.
func (r *ListingRepository) Save(ctx context.Context, listing *model.Listing) error {
	raw, err := json.Marshal(listing)
	if err != nil {
		return fmt.Errorf("encode listing %s: %w", listing.ID, err)
	}
	return r.store.Upsert(ctx, store.CollectionListings, listing.ID, raw)
}
