// Package events carries the outbound signal emitted when a booking is
// auto-rejected. Delivery is best-effort: consumers drive notifications and
// UI refreshes, never correctness.
package events

import (
	"context"
	"log"
	"time"
)

// BookingRejected describes a single automatic rejection.
type BookingRejected struct {
	BookingID      string    `json:"bookingId"`
	PropertyID     string    `json:"propertyId"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	Reason         string    `json:"reason"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// Rejection reasons.
const (
	ReasonRoomFull    = "room_full"
	ReasonListingFull = "listing_full"
)

// Publisher delivers rejection events to interested collaborators.
type Publisher interface {
	PublishBookingRejected(ctx context.Context, ev BookingRejected)
}

// LogPublisher writes each event to the process log. It is the default
// publisher wired in cmd.
type LogPublisher struct{}

// PublishBookingRejected logs the event.
func (LogPublisher) PublishBookingRejected(_ context.Context, ev BookingRejected) {
	log.Printf("booking %s on listing %s auto-rejected (%s): %s -> %s",
		ev.BookingID, ev.PropertyID, ev.Reason, ev.PreviousStatus, ev.NewStatus)
}

// NopPublisher discards events. Useful in tests.
type NopPublisher struct{}

// PublishBookingRejected discards the event.
func (NopPublisher) PublishBookingRejected(context.Context, BookingRejected) {}
