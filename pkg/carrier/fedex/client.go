// Package fedex provides tracking integration with the FedEx REST API.
package fedex

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/parcelwatch/tracking/pkg/carrier"
	"github.com/parcelwatch/tracking/pkg/carrier/tokencache"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	carrierName  = "fedex"
	displayName  = "FedEx"
	displayColor = "#4d148c"

	// deliveredCode is the documented latest-status code for a delivered
	// shipment.
	deliveredCode = "DL"

	tokenCacheKey = "token:fedex"
)

// Config holds FedEx configuration. Leaving the credentials empty disables
// remote tracking; deliveries then fall back to their manual fields.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	UseMock      bool // When true, uses the mock API client
}

// Client is the FedEx carrier client. It implements the carrier.Carrier
// interface and delegates API calls to the underlying APIClient (mock or
// HTTP), obtaining OAuth tokens through the shared token cache.
type Client struct {
	config    Config
	apiClient APIClient
	tokens    *tokencache.Cache
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new FedEx client. If cfg.UseMock is true, it uses a mock
// API client for testing. Otherwise, it uses the real HTTP API client.
// The logins counter may be nil.
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

// NewWithAPIClient creates a new FedEx client with a custom API client.
// This is useful for injecting mock clients in tests.
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

// loginCredential adapts the FedEx OAuth response into the token cache's
// credential shape. FedEx encodes expiry as seconds remaining at response
// time.
func (c *Client) loginCredential(ctx context.Context) (tokencache.Credential, error) {
	resp, err := c.apiClient.Login(ctx)
	if err != nil {
		return tokencache.Credential{}, err
	}
	return tokencache.Credential{
		AccessToken: resp.AccessToken,
		ExpiresIn:   time.Duration(resp.ExpiresIn) * time.Second,
	}, nil
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

// AbleToTrackRemotely reports whether FedEx credentials are configured.
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

// TrackingURL returns the FedEx tracking page for a delivery.
func (c *Client) TrackingURL(d *carrier.Delivery) string {
	return "https://www.fedex.com/fedextrack/?trknbr=" + url.QueryEscape(d.TrackingNumber)
}

// UpdateTracking fetches the current packages for a delivery. Without
// configured credentials it returns the manual package shape instead of
// calling out.
func (c *Client) UpdateTracking(ctx context.Context, d *carrier.Delivery) ([]carrier.Package, error) {
	if err := c.Configured(); err != nil {
		c.logger.Debug("FedEx credentials absent, using manual tracking",
			zap.String("tracking_number", d.TrackingNumber),
			zap.Error(err),
		)
		return []carrier.Package{carrier.ManualPackage(d)}, nil
	}

	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.Start(ctx, "fedex.update_tracking")
		defer span.End()
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Updating FedEx tracking",
		zap.String("tracking_number", d.TrackingNumber),
	)

	resp, err := c.apiClient.Track(ctx, token, d.TrackingNumber)
	if err != nil {
		c.logger.Error("FedEx API error", zap.Error(err))
		return nil, err
	}

	return packagesFromResponse(resp), nil
}

// ============================================================================
// Conversion helpers: API models -> carrier models
// ============================================================================

// packagesFromResponse flattens the nested track response into packages,
// one per shipment.
func packagesFromResponse(resp *TrackResponse) []carrier.Package {
	var packages []carrier.Package
	for _, result := range resp.Output.CompleteTrackResults {
		for _, shipment := range result.TrackResults {
			packages = append(packages, carrier.Package{
				Delivered:    shipment.LatestStatusDetail.Code == deliveredCode,
				DeliveryDate: deliveryDate(shipment.DateAndTimes),
				Events:       eventsFromScans(shipment.ScanEvents),
			})
		}
	}
	return packages
}

// deliveryDate resolves the best known date for a shipment: an actual
// delivery timestamp first, then the estimated date, then an appointment.
// The estimated value lacks time and timezone fidelity, so it is read as a
// local calendar date at midnight.
func deliveryDate(dates []DateAndTime) *time.Time {
	byType := make(map[string]string, len(dates))
	for _, dt := range dates {
		byType[dt.Type] = dt.DateTime
	}

	if raw, ok := byType["ACTUAL_DELIVERY"]; ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return &t
		}
	}
	if raw, ok := byType["ESTIMATED_DELIVERY"]; ok {
		if t, err := parseLocalDate(raw); err == nil {
			return &t
		}
	}
	if raw, ok := byType["APPOINTMENT_DELIVERY"]; ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return &t
		}
	}
	return nil
}

// parseLocalDate reads a bare calendar date, tolerating a trailing time
// component, as local midnight.
func parseLocalDate(raw string) (time.Time, error) {
	if len(raw) > 10 {
		raw = raw[:10]
	}
	return time.ParseInLocation("2006-01-02", raw, time.Local)
}

func eventsFromScans(scans []ScanEvent) []carrier.TrackingEvent {
	if len(scans) == 0 {
		return nil
	}
	events := make([]carrier.TrackingEvent, 0, len(scans))
	for _, scan := range scans {
		event := carrier.TrackingEvent{Description: scan.EventDescription}
		if t, err := time.Parse(time.RFC3339, scan.Date); err == nil {
			event.Timestamp = t
		}
		if scan.ScanLocation.City != "" {
			event.Location = scan.ScanLocation.City
			if scan.ScanLocation.StateOrProvinceCode != "" {
				event.Location += ", " + scan.ScanLocation.StateOrProvinceCode
			}
		}
		events = append(events, event)
	}
	return events
}

// Ensure Client implements the Carrier interface.
var _ carrier.Carrier = (*Client)(nil)
