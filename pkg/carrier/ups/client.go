// Package ups provides tracking integration with the UPS REST API.
package ups

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/parcelwatch/tracking/pkg/carrier"
	"github.com/parcelwatch/tracking/pkg/carrier/tokencache"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	carrierName  = "ups"
	displayName  = "UPS"
	displayColor = "#351c15"

	// deliveredCode is the documented current-status code for a delivered
	// package.
	deliveredCode = "011"

	tokenCacheKey = "token:ups"
)

// Config holds UPS configuration. Leaving the credentials empty disables
// remote tracking; deliveries then fall back to their manual fields.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	UseMock      bool // When true, uses the mock API client
}

// Client is the UPS carrier client. It implements the carrier.Carrier
// interface and delegates API calls to the underlying APIClient (mock or
// HTTP), obtaining OAuth tokens through the shared token cache.
type Client struct {
	config    Config
	apiClient APIClient
	tokens    *tokencache.Cache
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new UPS client. If cfg.UseMock is true, it uses a mock API
// client for testing. Otherwise, it uses the real HTTP API client. The
// logins counter may be nil.
func New(cfg Config, tokenStore tokencache.Store, logins tokencache.Counter, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:      cfg.BaseURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Timeout:      30 * time.Second,
		})
	}

	return NewWithAPIClient(cfg, apiClient, tokenStore, logins, logger, tracer)
}

// NewWithAPIClient creates a new UPS client with a custom API client. This
// is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, tokenStore tokencache.Store, logins tokencache.Counter, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	c := &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
	c.tokens = tokencache.New(tokenStore, tokenCacheKey, c.loginCredential).WithLoginCounter(logins)
	return c
}

// loginCredential adapts the UPS OAuth response into the token cache's
// credential shape. UPS encodes expiry as issued_at (epoch milliseconds)
// plus expires_in (seconds), both strings.
func (c *Client) loginCredential(ctx context.Context) (tokencache.Credential, error) {
	resp, err := c.apiClient.Login(ctx)
	if err != nil {
		return tokencache.Credential{}, err
	}

	seconds, err := strconv.Atoi(resp.ExpiresIn)
	if err != nil {
		return tokencache.Credential{}, &carrier.AuthenticationError{
			Carrier: carrierName,
			Status:  "unparsable expires_in",
			Cause:   err,
		}
	}

	cred := tokencache.Credential{
		AccessToken: resp.AccessToken,
		ExpiresIn:   time.Duration(seconds) * time.Second,
	}
	if ms, err := strconv.ParseInt(resp.IssuedAt, 10, 64); err == nil {
		cred.IssuedAt = time.UnixMilli(ms)
	}
	return cred, nil
}

// Name returns the carrier identifier.
func (c *Client) Name() string {
	return carrierName
}

// DisplayName returns the human-readable carrier name.
func (c *Client) DisplayName() string {
	return displayName
}

// Color returns the carrier display color.
func (c *Client) Color() string {
	return displayColor
}

// AbleToTrackRemotely reports whether UPS credentials are configured.
func (c *Client) AbleToTrackRemotely() bool {
	return c.config.ClientID != "" && c.config.ClientSecret != ""
}

// Configured reports whether remote tracking can be used. When credentials
// are absent it returns ErrNotConfigured, keeping "not configured" apart
// from "configured but broken".
func (c *Client) Configured() error {
	if !c.AbleToTrackRemotely() {
		return fmt.Errorf("%w: %s", carrier.ErrNotConfigured, carrierName)
	}
	return nil
}

// TrackingURL returns the UPS tracking page for a delivery.
func (c *Client) TrackingURL(d *carrier.Delivery) string {
	return "https://www.ups.com/track?tracknum=" + url.QueryEscape(d.TrackingNumber)
}

// UpdateTracking fetches the current packages for a delivery. Without
// configured credentials it returns the manual package shape instead of
// calling out.
func (c *Client) UpdateTracking(ctx context.Context, d *carrier.Delivery) ([]carrier.Package, error) {
	if err := c.Configured(); err != nil {
		c.logger.Debug("UPS credentials absent, using manual tracking",
			zap.String("tracking_number", d.TrackingNumber),
			zap.Error(err),
		)
		return []carrier.Package{carrier.ManualPackage(d)}, nil
	}

	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.Start(ctx, "ups.update_tracking")
		defer span.End()
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Updating UPS tracking",
		zap.String("tracking_number", d.TrackingNumber),
	)

	resp, err := c.apiClient.Track(ctx, token, d.TrackingNumber)
	if err != nil {
		c.logger.Error("UPS API error", zap.Error(err))
		return nil, err
	}

	return packagesFromResponse(resp), nil
}

// ============================================================================
// Conversion helpers: API models -> carrier models
// ============================================================================

// packagesFromResponse flattens the shipment/package nesting into carrier
// packages.
func packagesFromResponse(resp *TrackResponse) []carrier.Package {
	var packages []carrier.Package
	for _, shipment := range resp.TrackResponse.Shipment {
		for _, pkg := range shipment.Package {
			packages = append(packages, carrier.Package{
				Delivered:    pkg.CurrentStatus.Code == deliveredCode,
				DeliveryDate: deliveryDate(pkg.DeliveryDate),
				Events:       eventsFromActivity(pkg.Activity),
			})
		}
	}
	return packages
}

// deliveryDate resolves the best known date for a package: the actual
// delivery date first, then a rescheduled one, then the originally
// scheduled one. Each is an 8-digit YYYYMMDD local calendar date.
func deliveryDate(dates []DeliveryDate) *time.Time {
	byType := make(map[string]string, len(dates))
	for _, dd := range dates {
		byType[dd.Type] = dd.Date
	}

	for _, typ := range []string{"DEL", "RDD", "SDD"} {
		if raw, ok := byType[typ]; ok {
			if t, err := parseLocalDate(raw); err == nil {
				return &t
			}
		}
	}
	return nil
}

// parseLocalDate reads an 8-digit YYYYMMDD string as local midnight.
func parseLocalDate(raw string) (time.Time, error) {
	return time.ParseInLocation("20060102", raw, time.Local)
}

func eventsFromActivity(activities []Activity) []carrier.TrackingEvent {
	if len(activities) == 0 {
		return nil
	}
	events := make([]carrier.TrackingEvent, 0, len(activities))
	for _, act := range activities {
		event := carrier.TrackingEvent{Description: act.Status.Description}
		if t, err := time.ParseInLocation("20060102150405", act.Date+act.Time, time.Local); err == nil {
			event.Timestamp = t
		}
		if addr := act.Location.Address; addr.City != "" {
			event.Location = addr.City
			if addr.StateProvince != "" {
				event.Location += ", " + addr.StateProvince
			}
		}
		events = append(events, event)
	}
	return events
}

// Ensure Client implements the Carrier interface.
var _ carrier.Carrier = (*Client)(nil)
