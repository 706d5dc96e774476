package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/rentvault/booking-admission/internal/metrics"
	"github.com/rentvault/booking-admission/internal/model"
	"github.com/rentvault/booking-admission/internal/occupancy"
	"github.com/rentvault/booking-admission/internal/repository"
)

// StatusService keeps a listing's stored availabilityStatus consistent with
// the occupancy derived from its booking set. It never trusts the stored
// value: every sync recomputes from the bookings, so redundant calls converge
// instead of oscillating.
type StatusService struct {
	listings *repository.ListingRepository
	bookings *repository.BookingRepository
	locks    *LockRegistry
}

// NewStatusService constructs a StatusService. The lock registry must be the
// same instance the admission service uses so sync and admission for one
// listing never interleave.
func NewStatusService(
	listings *repository.ListingRepository,
	bookings *repository.BookingRepository,
	locks *LockRegistry,
) *StatusService {
	return &StatusService{listings: listings, bookings: bookings, locks: locks}
}

// SyncListingStatus reconciles a single listing's availabilityStatus with its
// computed occupancy. Safe to call redundantly: it writes only on mismatch.
func (s *StatusService) SyncListingStatus(ctx context.Context, listingID string) error {
	unlock := s.locks.Lock(listingID)
	defer unlock()

	_, err := s.syncLocked(ctx, listingID)
	return err
}

// SyncAllListingStatuses sweeps every listing, isolating per-listing failures
// so one unreachable record does not abort the batch. It returns the number of
// listings whose status was corrected and the joined per-listing errors.
func (s *StatusService) SyncAllListingStatuses(ctx context.Context) (int, error) {
	listings, err := s.listings.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list listings: %w", err)
	}

	updated := 0
	var errs []error
	for i := range listings {
		id := listings[i].ID

		// Lock one listing at a time so the sweep never blocks admission
		// traffic beyond the listing currently being repaired.
		unlock := s.locks.Lock(id)
		changed, err := s.syncLocked(ctx, id)
		unlock()

		if err != nil {
			log.Printf("sync listing %s: %v", id, err)
			errs = append(errs, fmt.Errorf("listing %s: %w", id, err))
			continue
		}
		if changed {
			updated++
		}
	}
	return updated, errors.Join(errs...)
}

// Occupancy returns a read-only snapshot of the listing's derived occupancy.
func (s *StatusService) Occupancy(ctx context.Context, listingID string) (*model.OccupancySnapshot, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	bookings, err := s.bookings.ListByProperty(ctx, listingID)
	if err != nil {
		return nil, err
	}
	return &model.OccupancySnapshot{
		ListingID:          listing.ID,
		OccupiedSlots:      occupancy.OccupiedSlots(listing, bookings),
		Capacity:           listing.Capacity,
		RoomCapacities:     listing.RoomCapacities,
		OccupiedPerRoom:    occupancy.OccupiedSlotsPerRoom(listing, bookings),
		AvailablePerRoom:   occupancy.AvailableSlotsPerRoom(listing, bookings),
		FullyOccupied:      occupancy.FullyOccupied(listing, bookings),
		AvailabilityStatus: listing.NormalizedStatus(),
	}, nil
}

// syncLocked recomputes and, on mismatch, rewrites the availability status.
// Callers must hold the listing lock. Returns whether a write happened.
func (s *StatusService) syncLocked(ctx context.Context, listingID string) (bool, error) {
	// Re-read inside the lock so the write never clobbers a concurrent edit
	// to unrelated fields of the same record.
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return false, err
	}
	bookings, err := s.bookings.ListByProperty(ctx, listingID)
	if err != nil {
		return false, err
	}

	current := listing.NormalizedStatus()
	desired := model.StatusAvailable
	switch {
	case occupancy.FullyOccupied(listing, bookings):
		desired = model.StatusOccupied
	case current == model.StatusReserved:
		// Reserved is an external override. It stays until either an external
		// collaborator clears it or the listing actually fills up.
		desired = model.StatusReserved
	}

	if current == desired {
		return false, nil
	}

	listing.AvailabilityStatus = desired
	listing.UpdatedAt = time.Now().UTC()
	if err := s.listings.Save(ctx, listing); err != nil {
		return false, fmt.Errorf("save listing %s: %w", listingID, err)
	}
	metrics.StatusWritesTotal.Inc()
	return true, nil
}
