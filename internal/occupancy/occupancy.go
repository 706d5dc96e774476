// Package occupancy computes occupied and available slot counts for a listing
// from its current booking set. Everything here is a pure query over in-memory
// values: no mutation, safe to call concurrently and repeatedly.
//
// A booking occupies a slot only when it is both approved and paid. The
// admission rule is room-first: when a listing defines per-room capacities the
// per-room counts decide admission, with the explicitly set overall capacity
// kept as a fallback ceiling.
package occupancy

import "github.com/rentvault/booking-admission/internal/model"

// OccupiedSlots returns the number of approved, paid bookings for the listing,
// regardless of which room they target.
func OccupiedSlots(listing *model.Listing, bookings []model.Booking) int {
	n := 0
	for i := range bookings {
		if bookings[i].PropertyID == listing.ID && bookings[i].CountsAsOccupied() {
			n++
		}
	}
	return n
}

// OccupiedSlotsPerRoom returns the occupied count for each room index. The
// result is empty when the listing has no room breakdown, signalling callers
// to fall back to the overall capacity. A booking whose selectedRoom is out of
// range counts toward no room.
func OccupiedSlotsPerRoom(listing *model.Listing, bookings []model.Booking) []int {
	if !listing.HasRooms() {
		return nil
	}
	counts := make([]int, len(listing.RoomCapacities))
	for i := range bookings {
		b := &bookings[i]
		if b.PropertyID != listing.ID || !b.CountsAsOccupied() {
			continue
		}
		if b.SelectedRoom == nil {
			continue
		}
		room := *b.SelectedRoom
		if room < 0 || room >= len(counts) {
			continue
		}
		counts[room]++
	}
	return counts
}

// AvailableSlotsPerRoom returns capacity minus occupancy for each room,
// floored at zero. A room with a non-positive configured capacity is invalid
// and reports zero available slots, failing safe toward rejection.
func AvailableSlotsPerRoom(listing *model.Listing, bookings []model.Booking) []int {
	occupied := OccupiedSlotsPerRoom(listing, bookings)
	if occupied == nil {
		return nil
	}
	available := make([]int, len(occupied))
	for i, capacity := range listing.RoomCapacities {
		if capacity <= 0 {
			available[i] = 0
			continue
		}
		free := capacity - occupied[i]
		if free < 0 {
			free = 0
		}
		available[i] = free
	}
	return available
}

// RoomFull reports whether room index i has no available slots. Out-of-range
// indexes report full so admission never succeeds against a room that does not
// exist.
func RoomFull(listing *model.Listing, bookings []model.Booking, i int) bool {
	available := AvailableSlotsPerRoom(listing, bookings)
	if i < 0 || i >= len(available) {
		return true
	}
	return available[i] == 0
}

// OverallFull reports whether the listing's overall capacity is exhausted.
// When no overall ceiling applies (rooms defined, capacity never set) it
// reports false and the per-room counts alone decide.
func OverallFull(listing *model.Listing, bookings []model.Booking) bool {
	limit := listing.EffectiveCapacity()
	if limit < 0 {
		return false
	}
	return OccupiedSlots(listing, bookings) >= limit
}

// FullyOccupied reports whether every slot of the listing is taken: with a
// room breakdown, every room must be full (an explicit overall ceiling being
// reached also counts); without one, the overall capacity decides.
func FullyOccupied(listing *model.Listing, bookings []model.Booking) bool {
	if listing.HasRooms() {
		if listing.Capacity != nil && OverallFull(listing, bookings) {
			return true
		}
		for _, free := range AvailableSlotsPerRoom(listing, bookings) {
			if free > 0 {
				return false
			}
		}
		return true
	}
	return OverallFull(listing, bookings)
}
