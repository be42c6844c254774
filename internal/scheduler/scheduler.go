// Package scheduler drives tracking refresh passes over the delivery list.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/parcelwatch/tracking/internal/store"
	"github.com/parcelwatch/tracking/internal/telemetry"
	"github.com/parcelwatch/tracking/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultStaleness is how long a snapshot stays fresh enough to skip
// re-fetching.
const DefaultStaleness = 30 * time.Minute

// Warning is a non-fatal, user-visible problem with one delivery's refresh.
// Warnings never halt a pass.
type Warning struct {
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"trackingNumber"`
	Message        string `json:"message"`
}

// Config holds scheduler configuration.
type Config struct {
	// Staleness overrides DefaultStaleness when non-zero.
	Staleness time.Duration
}

// Scheduler runs refresh passes: per delivery it decides whether a refresh
// is due, invokes the carrier client, and merges the result into the
// snapshot store. It is the only writer of the snapshot store.
type Scheduler struct {
	registry  *carrier.Registry
	snapshots *store.SnapshotStore
	logger    *otelzap.Logger
	metrics   *telemetry.Metrics
	tracer    trace.Tracer
	staleness time.Duration
}

// New creates a scheduler. The tracer may be nil when tracing is disabled.
func New(cfg Config, registry *carrier.Registry, snapshots *store.SnapshotStore, logger *otelzap.Logger, metrics *telemetry.Metrics, tracer trace.Tracer) *Scheduler {
	staleness := cfg.Staleness
	if staleness == 0 {
		staleness = DefaultStaleness
	}
	return &Scheduler{
		registry:  registry,
		snapshots: snapshots,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
		staleness: staleness,
	}
}

// RunPass refreshes every tracked delivery sequentially, in list order. A
// slow carrier delays later deliveries but never corrupts them, and a
// failing carrier call never aborts the pass: the delivery keeps its
// previous snapshot (so it renders its last-known state and retries next
// pass) and a warning is returned for it.
func (s *Scheduler) RunPass(ctx context.Context, deliveries []carrier.Delivery, force bool) []Warning {
	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.Start(ctx, "refresh.pass")
		defer span.End()
	}
	s.metrics.RefreshPasses.Inc()

	var warnings []Warning
	for i := range deliveries {
		d := &deliveries[i]

		// Debug entries exist only to drive deterministic sample data.
		if d.Debug {
			continue
		}

		client, err := s.registry.Get(d.Carrier)
		if err != nil {
			s.logger.Debug("Skipping delivery with unknown carrier",
				zap.String("carrier", d.Carrier),
				zap.String("delivery_id", d.ID),
			)
			continue
		}

		if !force {
			if snap, ok := s.snapshots.Get(d.ID); ok && time.Since(snap.LastUpdated) <= s.staleness {
				s.metrics.RecordRefresh(d.Carrier, "skipped", 0)
				continue
			}
		}

		start := time.Now()
		packages, err := client.UpdateTracking(ctx, d)
		if err != nil {
			s.metrics.RecordRefresh(d.Carrier, "failed", 0)
			s.metrics.RecordError(d.Carrier, errorType(err))
			s.logger.Warn("Tracking refresh failed",
				zap.String("carrier", d.Carrier),
				zap.String("tracking_number", d.TrackingNumber),
				zap.Error(err),
			)
			warnings = append(warnings, Warning{
				Carrier:        d.Carrier,
				TrackingNumber: d.TrackingNumber,
				Message:        err.Error(),
			})
			continue
		}

		snap := carrier.Snapshot{Packages: packages, LastUpdated: time.Now()}
		if err := s.snapshots.Put(ctx, d.ID, snap); err != nil {
			s.logger.Error("Persisting snapshot failed",
				zap.String("delivery_id", d.ID),
				zap.Error(err),
			)
			warnings = append(warnings, Warning{
				Carrier:        d.Carrier,
				TrackingNumber: d.TrackingNumber,
				Message:        err.Error(),
			})
			continue
		}
		s.metrics.RecordRefresh(d.Carrier, "updated", time.Since(start).Seconds())
	}
	return warnings
}

// errorType buckets an error for metrics.
func errorType(err error) string {
	if errors.Is(err, carrier.ErrAuthenticationFailed) {
		return "auth"
	}
	return "tracking"
}
