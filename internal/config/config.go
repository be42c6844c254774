package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Storage
	RedisURL string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	// Refresh
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"5m"`
	StalenessWindow time.Duration `envconfig:"STALENESS_WINDOW" default:"30m"`

	// FedEx
	FedExClientID     string `envconfig:"FEDEX_CLIENT_ID"`
	FedExClientSecret string `envconfig:"FEDEX_CLIENT_SECRET"`
	FedExBaseURL      string `envconfig:"FEDEX_BASE_URL" default:"https://apis.fedex.com"`
	FedExEnabled      bool   `envconfig:"FEDEX_ENABLED" default:"true"`
	FedExUseMock      bool   `envconfig:"FEDEX_USE_MOCK" default:"false"`

	// UPS
	UPSClientID     string `envconfig:"UPS_CLIENT_ID"`
	UPSClientSecret string `envconfig:"UPS_CLIENT_SECRET"`
	UPSBaseURL      string `envconfig:"UPS_BASE_URL" default:"https://onlinetools.ups.com"`
	UPSEnabled      bool   `envconfig:"UPS_ENABLED" default:"true"`
	UPSUseMock      bool   `envconfig:"UPS_USE_MOCK" default:"false"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"parcelwatch-tracking"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("fedex.enabled", c.FedExEnabled),
		attribute.Bool("ups.enabled", c.UPSEnabled),
	}
}
