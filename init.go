package main

import (
	"context"

	"github.com/parcelwatch/tracking/internal/config"
	"github.com/parcelwatch/tracking/internal/telemetry"
	"github.com/parcelwatch/tracking/pkg/carrier"
	"github.com/parcelwatch/tracking/pkg/carrier/fedex"
	"github.com/parcelwatch/tracking/pkg/carrier/manual"
	"github.com/parcelwatch/tracking/pkg/carrier/tokencache"
	"github.com/parcelwatch/tracking/pkg/carrier/ups"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

// initTracer returns a nil tracer when tracing is disabled; callers treat
// nil as "no spans".
func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return nil, nil, nil
	}
	return telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
}

// initCarrierRegistry registers the offline carrier plus every enabled
// remote carrier. The token store is shared; each carrier keeps its own
// cache key.
func initCarrierRegistry(cfg *config.Config, tokens tokencache.Store, metrics *telemetry.Metrics, logger *otelzap.Logger, tracer trace.Tracer) *carrier.Registry {
	registry := carrier.NewRegistry()

	registry.Register(manual.New())

	if cfg.FedExEnabled {
		registry.Register(fedex.New(fedex.Config{
			ClientID:     cfg.FedExClientID,
			ClientSecret: cfg.FedExClientSecret,
			BaseURL:      cfg.FedExBaseURL,
			UseMock:      cfg.FedExUseMock,
		}, tokens, metrics.LoginCounter("fedex"), logger, tracer))
	}

	if cfg.UPSEnabled {
		registry.Register(ups.New(ups.Config{
			ClientID:     cfg.UPSClientID,
			ClientSecret: cfg.UPSClientSecret,
			BaseURL:      cfg.UPSBaseURL,
			UseMock:      cfg.UPSUseMock,
		}, tokens, metrics.LoginCounter("ups"), logger, tracer))
	}

	// Remote carriers without credentials silently fall back to manual
	// tracking per delivery; say so once at startup.
	for _, c := range registry.All() {
		checker, ok := c.(interface{ Configured() error })
		if !ok {
			continue
		}
		if err := checker.Configured(); err != nil {
			logger.Warn("Carrier has no credentials, its deliveries use manual tracking",
				zap.String("carrier", c.Name()),
				zap.Error(err),
			)
		}
	}

	return registry
}
