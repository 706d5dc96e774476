// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rentvault/booking-admission/internal/database"
	"github.com/rentvault/booking-admission/internal/events"
	"github.com/rentvault/booking-admission/internal/handler"
	"github.com/rentvault/booking-admission/internal/metrics"
	"github.com/rentvault/booking-admission/internal/repository"
	"github.com/rentvault/booking-admission/internal/service"
	"github.com/rentvault/booking-admission/internal/store"
	"github.com/rentvault/booking-admission/internal/sweep"
)

func main() {
	ctx := context.Background()

	// ── 1. Pick a record-store driver ─────────────────────────────────────
	recordStore, cleanup, err := newStore(ctx)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer cleanup()

	// ── 2. Wire up layers ────────────────────────────────────────────────
	listingRepo := repository.NewListingRepository(recordStore)
	bookingRepo := repository.NewBookingRepository(recordStore)

	locks := service.NewLockRegistry()
	statusSvc := service.NewStatusService(listingRepo, bookingRepo, locks)
	admissionSvc := service.NewAdmissionService(
		listingRepo, bookingRepo, statusSvc, events.LogPublisher{}, locks)
	admissionHandler := handler.NewAdmissionHandler(admissionSvc, statusSvc, listingRepo, bookingRepo)

	// ── 3. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(handler.Logger)          // structured access log
	r.Use(handler.CORS)            // permissive CORS for demo
	r.Use(metrics.Middleware)      // prometheus request metrics

	// Health and metrics
	r.Get("/health", handler.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/listings", func(r chi.Router) {
		r.Post("/", admissionHandler.CreateListing)
		r.Get("/", admissionHandler.ListListings)
		r.Get("/{id}", admissionHandler.GetListing)
		r.Get("/{id}/occupancy", admissionHandler.GetOccupancy)
		r.Post("/{id}/reconcile", admissionHandler.ReconcileListing)
		r.Post("/{id}/sync", admissionHandler.SyncListing)
	})
	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", admissionHandler.CreateBooking)
		r.Get("/{id}", admissionHandler.GetBooking)
		r.Post("/{id}/payment-confirmed", admissionHandler.ConfirmPayment)
	})
	r.Post("/sync", admissionHandler.SyncAll)

	// ── 4. Start the periodic repair sweep ────────────────────────────────
	intervalMin, _ := strconv.Atoi(getEnv("SYNC_INTERVAL_MINUTES", "15"))
	sweeper := sweep.NewScheduler(statusSvc, intervalMin)
	if err := sweeper.Start(ctx); err != nil {
		log.Fatalf("sweep scheduler: %v", err)
	}
	defer sweeper.Stop()

	// ── 5. Start server with graceful shutdown ────────────────────────────
	port := getEnv("PORT", "8080")
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	go func() {
		log.Printf("✓ Server listening on http://localhost:%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
	log.Println("server stopped")
}

// newStore selects the record-store driver from STORE_DRIVER:
// memory (default), redis, or postgres.
func newStore(ctx context.Context) (store.RecordStore, func(), error) {
	switch driver := getEnv("STORE_DRIVER", "memory"); driver {
	case "memory":
		log.Println("✓ Using in-memory record store")
		return store.NewMemoryStore(), func() {}, nil

	case "redis":
		client := store.NewRedisClient()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		log.Println("✓ Connected to Redis")
		return store.NewRedisStore(client), func() { _ = client.Close() }, nil

	case "postgres":
		pool, err := database.NewPool(ctx)
		if err != nil {
			return nil, nil, err
		}
		pg, err := store.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Println("✓ Connected to PostgreSQL")
		return pg, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", driver)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
