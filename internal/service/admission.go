package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/rentvault/booking-admission/internal/events"
	"github.com/rentvault/booking-admission/internal/metrics"
	"github.com/rentvault/booking-admission/internal/model"
	"github.com/rentvault/booking-admission/internal/occupancy"
	"github.com/rentvault/booking-admission/internal/repository"
	"github.com/rentvault/booking-admission/internal/store"
)

// maxReconcileAttempts bounds retries when a store driver reports a
// concurrent write conflict.
const maxReconcileAttempts = 3

// AdmissionService enforces the capacity invariant: approved, paid occupants
// of a listing never exceed its configured slots.
//
// Naive read-then-write against the shared record store is racy:
//
//	goroutine A: reads occupancy for listing X -> 1 slot free
//	goroutine B: reads occupancy for listing X -> 1 slot free
//	goroutine A: approves its booking, writes
//	goroutine B: approves its booking, writes
//	Result: two occupants for one slot. OVERBOOKED.
//
// The store offers no transactions, so the whole read-compute-write cycle for
// one listing runs under that listing's mutex from the shared LockRegistry.
// Drivers that can detect cross-process conflicts report store.ErrConflict,
// which retries the full reconciliation a bounded number of times.
type AdmissionService struct {
	listings  *repository.ListingRepository
	bookings  *repository.BookingRepository
	status    *StatusService
	publisher events.Publisher
	locks     *LockRegistry
}

// NewAdmissionService constructs an AdmissionService. The lock registry must
// be shared with the StatusService.
func NewAdmissionService(
	listings *repository.ListingRepository,
	bookings *repository.BookingRepository,
	status *StatusService,
	publisher events.Publisher,
	locks *LockRegistry,
) *AdmissionService {
	return &AdmissionService{
		listings:  listings,
		bookings:  bookings,
		status:    status,
		publisher: publisher,
		locks:     locks,
	}
}

// ReconcileListing recomputes occupancy for the listing, rejects pending
// bookings that can no longer fit, and syncs the availability status.
//
// The operation is idempotent: re-running it with no new paid bookings
// produces no further writes. A missing listing is a no-op reported as
// repository.ErrNotFound, which callers may treat as benign.
func (s *AdmissionService) ReconcileListing(ctx context.Context, listingID string) error {
	unlock := s.locks.Lock(listingID)
	defer unlock()

	err := s.withConflictRetry(listingID, func() error {
		return s.reconcileLocked(ctx, listingID, "")
	})
	s.countReconcile(err)
	return err
}

// ConfirmBookingPayment is the inbound "payment confirmed" trigger. Under the
// listing lock it marks the booking paid, approves it if its target room or
// listing still has a free slot, then runs the same rejection passes and
// status sync as ReconcileListing. Exactly one of two racing confirmations
// for the last slot gets approved.
func (s *AdmissionService) ConfirmBookingPayment(ctx context.Context, bookingID string) (*model.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(booking.PropertyID)
	defer unlock()

	err = s.withConflictRetry(booking.PropertyID, func() error {
		return s.confirmLocked(ctx, bookingID, booking.PropertyID)
	})
	s.countReconcile(err)
	if err != nil {
		return nil, err
	}
	return s.bookings.GetByID(ctx, bookingID)
}

// withConflictRetry re-runs fn while it fails with store.ErrConflict, up to
// maxReconcileAttempts.
func (s *AdmissionService) withConflictRetry(listingID string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxReconcileAttempts; attempt++ {
		err = fn()
		if !errors.Is(err, store.ErrConflict) {
			return err
		}
		log.Printf("reconcile listing %s: conflict on attempt %d/%d, retrying",
			listingID, attempt, maxReconcileAttempts)
	}
	return err
}

func (s *AdmissionService) countReconcile(err error) {
	switch {
	case err == nil:
		metrics.ReconcilesTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, repository.ErrNotFound):
		metrics.ReconcilesTotal.WithLabelValues("not_found").Inc()
	default:
		metrics.ReconcilesTotal.WithLabelValues("error").Inc()
	}
}

// confirmLocked marks the booking paid (idempotently) and reconciles its
// listing with the booking as the approval candidate. Caller holds the
// listing lock.
func (s *AdmissionService) confirmLocked(ctx context.Context, bookingID, listingID string) error {
	// Re-read under the lock; the pre-lock copy may be stale.
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if !strings.EqualFold(booking.PaymentStatus, model.PaymentPaid) {
		booking.PaymentStatus = model.PaymentPaid
		booking.UpdatedAt = time.Now().UTC()
		if err := s.bookings.Save(ctx, booking); err != nil {
			return fmt.Errorf("mark booking %s paid: %w", bookingID, err)
		}
	}
	return s.reconcileLocked(ctx, listingID, bookingID)
}

// reconcileLocked is the single-listing reconciliation pass. Caller holds the
// listing lock. approveID optionally names a just-paid booking eligible for
// the pending -> approved transition before the rejection passes run.
func (s *AdmissionService) reconcileLocked(ctx context.Context, listingID, approveID string) error {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("reconcile: listing %s not found, nothing to do", listingID)
		}
		return err
	}
	bookings, err := s.bookings.ListByProperty(ctx, listingID)
	if err != nil {
		return fmt.Errorf("list bookings for %s: %w", listingID, err)
	}

	if approveID != "" {
		if err := s.approveIfRoom(ctx, listing, bookings, approveID); err != nil {
			return err
		}
	}

	// Room pass. Occupancy is measured once, before any rejection in this
	// pass: rejections remove excess demand, they never free capacity for
	// other pending bookings in the same pass.
	if listing.HasRooms() {
		available := occupancy.AvailableSlotsPerRoom(listing, bookings)
		for i := range bookings {
			b := &bookings[i]
			if !b.IsPending() || b.SelectedRoom == nil {
				continue
			}
			room := *b.SelectedRoom
			full := room < 0 || room >= len(available) || available[room] == 0
			if !full {
				continue
			}
			if err := s.rejectBooking(ctx, b, events.ReasonRoomFull); err != nil {
				// Skip and continue: one bad write must not block siblings.
				// The next trigger or sweep converges the leftover.
				log.Printf("reject booking %s: %v", b.ID, err)
			}
		}
	}

	// Listing pass: the overall capacity is a fallback ceiling that applies
	// whether or not rooms are defined. Statuses are re-read from the store
	// so bookings already rejected by the room pass are not reprocessed.
	if occupancy.OverallFull(listing, bookings) {
		for i := range bookings {
			fresh, err := s.bookings.GetByID(ctx, bookings[i].ID)
			if err != nil {
				log.Printf("re-read booking %s: %v", bookings[i].ID, err)
				continue
			}
			if !fresh.IsPending() {
				continue
			}
			if err := s.rejectBooking(ctx, fresh, events.ReasonListingFull); err != nil {
				log.Printf("reject booking %s: %v", fresh.ID, err)
			}
		}
	}

	_, err = s.status.syncLocked(ctx, listingID)
	return err
}

// approveIfRoom flips the candidate booking to approved when it is pending,
// paid, and its target still has a free slot. The in-memory booking slice is
// updated so the rejection passes see the consumed slot.
func (s *AdmissionService) approveIfRoom(ctx context.Context, listing *model.Listing, bookings []model.Booking, approveID string) error {
	var candidate *model.Booking
	for i := range bookings {
		if bookings[i].ID == approveID {
			candidate = &bookings[i]
			break
		}
	}
	if candidate == nil || !candidate.IsPending() ||
		!strings.EqualFold(candidate.PaymentStatus, model.PaymentPaid) {
		return nil
	}

	admit := false
	switch {
	case listing.HasRooms() && candidate.SelectedRoom != nil:
		// A specific room: it must have a slot, and an explicitly configured
		// overall ceiling must not already be reached.
		admit = !occupancy.RoomFull(listing, bookings, *candidate.SelectedRoom) &&
			!occupancy.OverallFull(listing, bookings)
	default:
		admit = !occupancy.FullyOccupied(listing, bookings)
	}
	if !admit {
		// Left pending; the rejection passes in this same run pick it up.
		return nil
	}

	candidate.Status = model.BookingApproved
	candidate.UpdatedAt = time.Now().UTC()
	if err := s.bookings.Save(ctx, candidate); err != nil {
		return fmt.Errorf("approve booking %s: %w", approveID, err)
	}
	return nil
}

// rejectBooking transitions a booking to rejected via read-modify-write. A
// booking that is no longer pending in the store is a harmless no-op. On
// success the caller's in-memory copy is refreshed and the rejection event is
// published best-effort.
func (s *AdmissionService) rejectBooking(ctx context.Context, b *model.Booking, reason string) error {
	fresh, err := s.bookings.GetByID(ctx, b.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if !fresh.IsPending() {
		*b = *fresh
		return nil
	}

	previous := fresh.Status
	now := time.Now().UTC()
	fresh.Status = model.BookingRejected
	fresh.RejectedAt = &now
	fresh.UpdatedAt = now
	if err := s.bookings.Save(ctx, fresh); err != nil {
		return err
	}
	*b = *fresh

	metrics.RejectionsTotal.WithLabelValues(reason).Inc()
	s.publisher.PublishBookingRejected(ctx, events.BookingRejected{
		BookingID:      fresh.ID,
		PropertyID:     fresh.PropertyID,
		PreviousStatus: previous,
		NewStatus:      fresh.Status,
		Reason:         reason,
		OccurredAt:     now,
	})
	return nil
}
