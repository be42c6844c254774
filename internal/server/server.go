// Package server exposes the tracking engine over a small HTTP JSON API and
// owns the periodic refresh loop.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/parcelwatch/tracking/internal/scheduler"
	"github.com/parcelwatch/tracking/internal/store"
	"github.com/parcelwatch/tracking/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Server is the HTTP server for the tracking service.
type Server struct {
	port       int
	interval   time.Duration
	registry   *carrier.Registry
	deliveries *store.DeliveryStore
	snapshots  *store.SnapshotStore
	sched      *scheduler.Scheduler
	logger     *otelzap.Logger

	// passes tracks refresh passes spawned by handlers so shutdown can
	// wait for them.
	passes sync.WaitGroup
}

// Config holds server configuration.
type Config struct {
	Port int

	// RefreshInterval is the period of the automatic refresh loop. Zero or
	// negative disables the loop.
	RefreshInterval time.Duration
}

// New creates a new server instance.
func New(cfg Config, registry *carrier.Registry, deliveries *store.DeliveryStore, snapshots *store.SnapshotStore, sched *scheduler.Scheduler, logger *otelzap.Logger) *Server {
	return &Server{
		port:       cfg.Port,
		interval:   cfg.RefreshInterval,
		registry:   registry,
		deliveries: deliveries,
		snapshots:  snapshots,
		sched:      sched,
		logger:     logger,
	}
}

// routes builds the HTTP routing table.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", s.handleHealth)

	// Prometheus metrics
	mux.Handle("GET /metrics", promhttp.Handler())

	// Tracking API
	mux.HandleFunc("GET /api/deliveries", s.handleListDeliveries)
	mux.HandleFunc("POST /api/deliveries", s.handleAddDelivery)
	mux.HandleFunc("DELETE /api/deliveries/{id}", s.handleRemoveDelivery)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)

	return mux
}

// Run starts the HTTP server and the refresh loop, blocking until the
// context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		s.refreshLoop(ctx)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	s.passes.Wait()
	return err
}

// refreshLoop runs a non-forced refresh pass at the configured interval.
func (s *Server) refreshLoop(ctx context.Context) {
	if s.interval <= 0 {
		<-ctx.Done()
		return
	}

	s.runPass(ctx, false)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runPass(ctx, false)
		}
	}
}

// runPass loads the delivery list and runs one pass over it.
func (s *Server) runPass(ctx context.Context, force bool) []scheduler.Warning {
	deliveries, err := s.deliveries.List(ctx)
	if err != nil {
		s.logger.Error("Loading delivery list failed", zap.Error(err))
		return nil
	}
	return s.sched.RunPass(ctx, deliveries, force)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// deliveryView is one delivery decorated with its snapshot and display
// state, as consumed by the UI layer.
type deliveryView struct {
	carrier.Delivery
	CarrierName  string            `json:"carrierName,omitempty"`
	CarrierColor string            `json:"carrierColor,omitempty"`
	TrackingURL  string            `json:"trackingUrl,omitempty"`
	IconState    carrier.IconState `json:"iconState"`
	Status       carrier.Status    `json:"status"`
	Packages     []carrier.Package `json:"packages"`
	LastUpdated  *time.Time        `json:"lastUpdated,omitempty"`
}

// handleListDeliveries returns the tracked deliveries in display order.
func (s *Server) handleListDeliveries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	deliveries, err := s.deliveries.List(ctx)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	snapshots := s.snapshots.All()
	now := time.Now()

	views := make([]deliveryView, 0, len(deliveries))
	for _, d := range carrier.SortDeliveries(deliveries, snapshots, now) {
		view := deliveryView{Delivery: d}
		if c, err := s.registry.Get(d.Carrier); err == nil {
			view.CarrierName = c.DisplayName()
			view.CarrierColor = c.Color()
			view.TrackingURL = c.TrackingURL(&d)
		}
		if snap, ok := snapshots[d.ID]; ok {
			view.Packages = snap.Packages
			t := snap.LastUpdated
			view.LastUpdated = &t
		}
		view.IconState = carrier.IconStateFor(view.Packages)
		view.Status = carrier.StatusFor(view.Packages, now)
		views = append(views, view)
	}

	s.writeJSON(w, http.StatusOK, views)
}

// handleAddDelivery stores a new tracked delivery and kicks off an
// automatic (non-forced) refresh pass, since the delivery list changed.
func (s *Server) handleAddDelivery(w http.ResponseWriter, r *http.Request) {
	var d carrier.Delivery
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if d.Carrier == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("carrier is required"))
		return
	}
	if _, err := s.registry.Get(d.Carrier); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	added, err := s.deliveries.Add(r.Context(), d)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	// The pass outlives the request; it is not coordinated with any pass
	// already in flight (last writer wins on the snapshot store).
	ctx := context.WithoutCancel(r.Context())
	s.passes.Add(1)
	go func() {
		defer s.passes.Done()
		s.runPass(ctx, false)
	}()

	s.writeJSON(w, http.StatusCreated, added)
}

// handleRemoveDelivery deletes a delivery and its snapshot.
func (s *Server) handleRemoveDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	if err := s.deliveries.Remove(ctx, id); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.snapshots.Delete(ctx, id); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRefresh runs a forced refresh pass and reports its warnings.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	warnings := s.runPass(r.Context(), true)
	if warnings == nil {
		warnings = []scheduler.Warning{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"warnings": warnings})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Encoding response failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
