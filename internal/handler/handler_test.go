package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/rentvault/booking-admission/internal/events"
	"github.com/rentvault/booking-admission/internal/model"
	"github.com/rentvault/booking-admission/internal/repository"
	"github.com/rentvault/booking-admission/internal/service"
	"github.com/rentvault/booking-admission/internal/store"
)

func newTestRouter() chi.Router {
	recordStore := store.NewMemoryStore()
	listings := repository.NewListingRepository(recordStore)
	bookings := repository.NewBookingRepository(recordStore)
	locks := service.NewLockRegistry()
	status := service.NewStatusService(listings, bookings, locks)
	admission := service.NewAdmissionService(listings, bookings, status, events.NopPublisher{}, locks)
	h := NewAdmissionHandler(admission, status, listings, bookings)

	r := chi.NewRouter()
	r.Route("/listings", func(r chi.Router) {
		r.Post("/", h.CreateListing)
		r.Get("/", h.ListListings)
		r.Get("/{id}", h.GetListing)
		r.Get("/{id}/occupancy", h.GetOccupancy)
		r.Post("/{id}/reconcile", h.ReconcileListing)
		r.Post("/{id}/sync", h.SyncListing)
	})
	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", h.CreateBooking)
		r.Get("/{id}", h.GetBooking)
		r.Post("/{id}/payment-confirmed", h.ConfirmPayment)
	})
	r.Post("/sync", h.SyncAll)
	r.Get("/health", HealthCheck)
	return r
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode response %s: %v", rec.Body.String(), err)
		}
	}
	return rec
}

func TestHealthCheck(t *testing.T) {
	r := newTestRouter()
	rec := doJSON(t, r, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCreateListing_Validation(t *testing.T) {
	r := newTestRouter()

	rec := doJSON(t, r, http.MethodPost, "/listings", map[string]any{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing title: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPost, "/listings",
		map[string]any{"title": "Room A", "unknown": true}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: status = %d, want 400", rec.Code)
	}
}

func TestReconcileListing_NotFound(t *testing.T) {
	r := newTestRouter()
	rec := doJSON(t, r, http.MethodPost, "/listings/missing/reconcile", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

// Full flow over HTTP: create a single-slot listing, create two bookings,
// confirm payment for both; the second confirmation finds the listing full.
func TestPaymentConfirmationFlow(t *testing.T) {
	r := newTestRouter()

	var listing model.Listing
	capacity := 1
	rec := doJSON(t, r, http.MethodPost, "/listings",
		model.CreateListingRequest{Title: "Studio", Capacity: &capacity}, &listing)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create listing: status = %d", rec.Code)
	}

	var b1, b2 model.Booking
	doJSON(t, r, http.MethodPost, "/bookings",
		model.CreateBookingRequest{PropertyID: listing.ID}, &b1)
	doJSON(t, r, http.MethodPost, "/bookings",
		model.CreateBookingRequest{PropertyID: listing.ID}, &b2)

	var confirmed model.Booking
	rec = doJSON(t, r, http.MethodPost, "/bookings/"+b1.ID+"/payment-confirmed", nil, &confirmed)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm b1: status = %d", rec.Code)
	}
	if confirmed.Status != model.BookingApproved {
		t.Fatalf("b1 = %s, want approved", confirmed.Status)
	}

	rec = doJSON(t, r, http.MethodPost, "/bookings/"+b2.ID+"/payment-confirmed", nil, &confirmed)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm b2: status = %d", rec.Code)
	}
	if confirmed.Status != model.BookingRejected {
		t.Fatalf("b2 = %s, want rejected", confirmed.Status)
	}

	var snapshot model.OccupancySnapshot
	rec = doJSON(t, r, http.MethodGet, "/listings/"+listing.ID+"/occupancy", nil, &snapshot)
	if rec.Code != http.StatusOK {
		t.Fatalf("occupancy: status = %d", rec.Code)
	}
	if snapshot.OccupiedSlots != 1 || !snapshot.FullyOccupied {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
	if snapshot.AvailabilityStatus != model.StatusOccupied {
		t.Fatalf("availabilityStatus = %s, want occupied", snapshot.AvailabilityStatus)
	}
}

func TestCreateBooking_UnknownListing(t *testing.T) {
	r := newTestRouter()
	rec := doJSON(t, r, http.MethodPost, "/bookings",
		model.CreateBookingRequest{PropertyID: "missing"}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSyncAll(t *testing.T) {
	r := newTestRouter()

	var listing model.Listing
	capacity := 1
	doJSON(t, r, http.MethodPost, "/listings",
		model.CreateListingRequest{Title: "Unit", Capacity: &capacity}, &listing)

	var result map[string]any
	rec := doJSON(t, r, http.MethodPost, "/sync", nil, &result)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if _, ok := result["updated"]; !ok {
		t.Fatalf("response missing updated count: %v", result)
	}
}
