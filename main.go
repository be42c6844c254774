package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/parcelwatch/tracking/internal/scheduler"
	"github.com/parcelwatch/tracking/internal/server"
	"github.com/parcelwatch/tracking/internal/store"
	"github.com/parcelwatch/tracking/internal/telemetry"
	"github.com/parcelwatch/tracking/pkg/carrier"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "tracking",
	Short:   "Parcelwatch - multi-carrier parcel tracking service",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tracking API server and refresh loop",
	RunE:  runServe,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run a single forced refresh pass and print delivery status",
	RunE:  runRefresh,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(refreshCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize telemetry
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracer, tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else if tracerShutdown != nil {
		defer tracerShutdown(ctx)
	}

	// Open persistent storage
	kv, err := store.NewRedisKV(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer kv.Close()

	deliveries := store.NewDeliveryStore(kv)
	snapshots := store.NewSnapshotStore(kv)
	if err := snapshots.Load(ctx); err != nil {
		logger.Warn("Loading persisted snapshots failed", zap.Error(err))
	}

	// Register carriers and wire the scheduler
	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)
	registry := initCarrierRegistry(cfg, kv, metrics, logger, tracer)
	sched := scheduler.New(
		scheduler.Config{Staleness: cfg.StalenessWindow},
		registry, snapshots, logger, metrics, tracer,
	)

	logger.Info("Starting Parcelwatch tracking service",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.Strings("carriers", registry.Names()),
	)

	// Start HTTP server
	srv := server.New(server.Config{
		Port:            cfg.Port,
		RefreshInterval: cfg.RefreshInterval,
	}, registry, deliveries, snapshots, sched, logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	kv, err := store.NewRedisKV(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer kv.Close()

	deliveryStore := store.NewDeliveryStore(kv)
	snapshots := store.NewSnapshotStore(kv)
	if err := snapshots.Load(ctx); err != nil {
		logger.Warn("Loading persisted snapshots failed", zap.Error(err))
	}

	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	registry := initCarrierRegistry(cfg, kv, metrics, logger, nil)
	sched := scheduler.New(
		scheduler.Config{Staleness: cfg.StalenessWindow},
		registry, snapshots, logger, metrics, nil,
	)

	deliveries, err := deliveryStore.List(ctx)
	if err != nil {
		return fmt.Errorf("loading delivery list: %w", err)
	}

	warnings := sched.RunPass(ctx, deliveries, true)
	for _, warning := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s %s: %s\n",
			warning.Carrier, warning.TrackingNumber, warning.Message)
	}

	all := snapshots.All()
	now := time.Now()
	for _, d := range carrier.SortDeliveries(deliveries, all, now) {
		status := carrier.StatusFor(all[d.ID].Packages, now)
		fmt.Printf("%-24s %-8s %-20s %s\n", d.Name, d.Carrier, d.TrackingNumber, status.Text)
	}
	return nil
}
