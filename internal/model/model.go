// Package model defines the core domain types for the booking admission system.
package model

import (
	"strings"
	"time"
)

// Availability status values for a listing. Stored lowercase; comparisons are
// case-insensitive because records written by older app versions carry mixed
// casing.
const (
	StatusAvailable = "available"
	StatusOccupied  = "occupied"
	StatusReserved  = "reserved"
)

// Booking status values. Approved and rejected are terminal; pending is the
// only state a booking can transition out of.
const (
	BookingPending  = "pending"
	BookingApproved = "approved"
	BookingRejected = "rejected"
)

// Payment status values.
const (
	PaymentUnpaid = "unpaid"
	PaymentPaid   = "paid"
)

// Listing represents a rentable property unit with a finite number of slots.
// Capacity fields are owned by the listing-management side; this subsystem
// only derives AvailabilityStatus from them.
type Listing struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`

	// Capacity is the overall maximum of concurrent occupants. Nil means the
	// field was never set: the listing defaults to a single slot unless it
	// carries a per-room breakdown.
	Capacity *int `json:"capacity,omitempty"`

	// RoomCapacities, when non-empty, gives the capacity of room i at index i
	// and supersedes Capacity for admission decisions. Capacity remains a
	// fallback ceiling when it is explicitly set.
	RoomCapacities []int `json:"roomCapacities,omitempty"`

	AvailabilityStatus string `json:"availabilityStatus,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasRooms reports whether the listing defines a per-room capacity breakdown.
func (l *Listing) HasRooms() bool {
	return len(l.RoomCapacities) > 0
}

// EffectiveCapacity resolves the overall capacity used by admission decisions.
//
//	set and positive  -> that value
//	set and <= 0      -> 0 (invalid config fails safe toward zero slots)
//	unset, no rooms   -> 1 (legacy single-unit default)
//	unset, with rooms -> -1 (no overall ceiling; rooms alone decide)
func (l *Listing) EffectiveCapacity() int {
	if l.Capacity != nil {
		if *l.Capacity <= 0 {
			return 0
		}
		return *l.Capacity
	}
	if l.HasRooms() {
		return -1
	}
	return 1
}

// NormalizedStatus returns the stored availability status lowercased, with an
// absent value defaulting to available.
func (l *Listing) NormalizedStatus() string {
	s := strings.ToLower(strings.TrimSpace(l.AvailabilityStatus))
	if s == "" {
		return StatusAvailable
	}
	return s
}

// Booking represents a tenant's request to occupy a listing, optionally a
// specific room within it.
type Booking struct {
	ID         string `json:"id"`
	PropertyID string `json:"propertyId"`

	// SelectedRoom is a zero-based index into the listing's RoomCapacities.
	// Nil means the booking targets the listing as a whole.
	SelectedRoom *int `json:"selectedRoom,omitempty"`

	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"`

	RejectedAt *time.Time `json:"rejectedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// IsPending reports whether the booking can still transition.
func (b *Booking) IsPending() bool {
	return strings.EqualFold(b.Status, BookingPending)
}

// CountsAsOccupied reports whether the booking consumes a slot: it must be
// both approved and paid.
func (b *Booking) CountsAsOccupied() bool {
	return strings.EqualFold(b.Status, BookingApproved) &&
		strings.EqualFold(b.PaymentStatus, PaymentPaid)
}

// TargetsRoom reports whether the booking targets room index i.
func (b *Booking) TargetsRoom(i int) bool {
	return b.SelectedRoom != nil && *b.SelectedRoom == i
}

// CreateListingRequest is the payload for creating a new listing.
type CreateListingRequest struct {
	Title          string `json:"title"`
	Capacity       *int   `json:"capacity,omitempty"`
	RoomCapacities []int  `json:"roomCapacities,omitempty"`
}

// CreateBookingRequest is the payload for creating a new booking.
type CreateBookingRequest struct {
	PropertyID   string `json:"propertyId"`
	SelectedRoom *int   `json:"selectedRoom,omitempty"`
}

// OccupancySnapshot is the read-model returned by the occupancy endpoint.
type OccupancySnapshot struct {
	ListingID          string `json:"listingId"`
	OccupiedSlots      int    `json:"occupiedSlots"`
	Capacity           *int   `json:"capacity,omitempty"`
	RoomCapacities     []int  `json:"roomCapacities,omitempty"`
	OccupiedPerRoom    []int  `json:"occupiedPerRoom,omitempty"`
	AvailablePerRoom   []int  `json:"availablePerRoom,omitempty"`
	FullyOccupied      bool   `json:"fullyOccupied"`
	AvailabilityStatus string `json:"availabilityStatus"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
