// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rentvault/booking-admission/internal/model"
	"github.com/rentvault/booking-admission/internal/repository"
	"github.com/rentvault/booking-admission/internal/service"
)

// AdmissionHandler holds all HTTP handlers for the admission API.
type AdmissionHandler struct {
	admission *service.AdmissionService
	status    *service.StatusService
	listings  *repository.ListingRepository
	bookings  *repository.BookingRepository
}

// NewAdmissionHandler constructs an AdmissionHandler.
func NewAdmissionHandler(
	admission *service.AdmissionService,
	status *service.StatusService,
	listings *repository.ListingRepository,
	bookings *repository.BookingRepository,
) *AdmissionHandler {
	return &AdmissionHandler{
		admission: admission,
		status:    status,
		listings:  listings,
		bookings:  bookings,
	}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// ─── Listings ─────────────────────────────────────────────────────────────────

// CreateListing handles POST /listings
func (h *AdmissionHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req model.CreateListingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	listing, err := h.listings.Create(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create listing")
		return
	}
	writeJSON(w, http.StatusCreated, listing)
}

// ListListings handles GET /listings
func (h *AdmissionHandler) ListListings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.listings.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list listings")
		return
	}
	// Return an empty array rather than null for better client compatibility.
	if listings == nil {
		listings = []model.Listing{}
	}
	writeJSON(w, http.StatusOK, listings)
}

// GetListing handles GET /listings/{id}
func (h *AdmissionHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	listing, err := h.listings.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "listing not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get listing")
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// GetOccupancy handles GET /listings/{id}/occupancy
func (h *AdmissionHandler) GetOccupancy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snapshot, err := h.status.Occupancy(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "listing not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to compute occupancy")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// ReconcileListing handles POST /listings/{id}/reconcile
// The inbound trigger for capacity-configuration changes.
func (h *AdmissionHandler) ReconcileListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.admission.ReconcileListing(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "listing not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to reconcile listing")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reconciled"})
}

// SyncListing handles POST /listings/{id}/sync
func (h *AdmissionHandler) SyncListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.status.SyncListingStatus(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "listing not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to sync listing status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "synced"})
}

// SyncAll handles POST /sync
// Runs the full repair pass over every listing.
func (h *AdmissionHandler) SyncAll(w http.ResponseWriter, r *http.Request) {
	updated, err := h.status.SyncAllListingStatuses(r.Context())
	if err != nil {
		// Partial success: some listings synced, some failed. Report both.
		writeJSON(w, http.StatusMultiStatus, map[string]any{
			"updated": updated,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": updated})
}

// ─── Bookings ─────────────────────────────────────────────────────────────────

// CreateBooking handles POST /bookings
func (h *AdmissionHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req model.CreateBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.PropertyID == "" {
		writeError(w, http.StatusBadRequest, "propertyId is required")
		return
	}
	if req.SelectedRoom != nil && *req.SelectedRoom < 0 {
		writeError(w, http.StatusBadRequest, "selectedRoom must be a non-negative room index")
		return
	}
	if _, err := h.listings.GetByID(r.Context(), req.PropertyID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "listing not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to verify listing")
		return
	}

	booking, err := h.bookings.Create(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create booking")
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

// GetBooking handles GET /bookings/{id}
func (h *AdmissionHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	booking, err := h.bookings.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "booking not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get booking")
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// ConfirmPayment handles POST /bookings/{id}/payment-confirmed
// The inbound trigger for booking payment confirmation.
func (h *AdmissionHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	booking, err := h.admission.ConfirmBookingPayment(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "booking not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to process payment confirmation")
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
