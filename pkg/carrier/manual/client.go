// Package manual provides the offline carrier for deliveries tracked by
// hand. It has no remote API; tracking state comes entirely from the
// delivery's own manual fields.
package manual

import (
	"context"

	"github.com/parcelwatch/tracking/pkg/carrier"
)

const (
	carrierName  = "manual"
	displayName  = "Manual"
	displayColor = "#9e9e9e"
)

// Client is the offline carrier client.
type Client struct{}

// New creates a new manual carrier client.
func New() *Client {
	return &Client{}
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

// AbleToTrackRemotely always reports false: there is nothing to call.
func (c *Client) AbleToTrackRemotely() bool {
	return false
}

// TrackingURL returns an empty string; manual deliveries have no tracking
// webpage.
func (c *Client) TrackingURL(d *carrier.Delivery) string {
	return ""
}

// UpdateTracking synthesizes a single package from the delivery's manual
// delivered flag and delivery date. It never fails.
func (c *Client) UpdateTracking(ctx context.Context, d *carrier.Delivery) ([]carrier.Package, error) {
	return []carrier.Package{carrier.ManualPackage(d)}, nil
}

// Ensure Client implements the Carrier interface.
var _ carrier.Carrier = (*Client)(nil)
