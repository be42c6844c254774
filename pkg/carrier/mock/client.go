// Package mock provides a mock carrier implementation for testing.
package mock

import (
	"context"
	"fmt"
	"time"

	"github.com/parcelwatch/tracking/pkg/carrier"
)

// Client is a mock carrier for testing.
type Client struct {
	name string

	// Packages, when set, are returned from UpdateTracking.
	Packages []carrier.Package

	// Err, when set, fails UpdateTracking.
	Err error

	// Calls counts UpdateTracking invocations.
	Calls int

	// OnUpdateTracking overrides the default UpdateTracking behavior.
	OnUpdateTracking func(ctx context.Context, d *carrier.Delivery) ([]carrier.Package, error)
}

// New creates a new mock carrier.
func New(name string) *Client {
	return &Client{name: name}
}

// Name returns the carrier identifier.
func (c *Client) Name() string {
	return c.name
}

// DisplayName returns the carrier name.
func (c *Client) DisplayName() string {
	return c.name
}

// Color returns a fixed display color.
func (c *Client) Color() string {
	return "#336699"
}

// AbleToTrackRemotely always reports true for the mock.
func (c *Client) AbleToTrackRemotely() bool {
	return true
}

// TrackingURL returns a synthetic tracking page URL.
func (c *Client) TrackingURL(d *carrier.Delivery) string {
	return fmt.Sprintf("https://tracking.example.com/%s/%s", c.name, d.TrackingNumber)
}

// UpdateTracking returns the configured packages, error, or a single
// in-transit package expected in two days.
func (c *Client) UpdateTracking(ctx context.Context, d *carrier.Delivery) ([]carrier.Package, error) {
	c.Calls++
	if c.Err != nil {
		return nil, c.Err
	}
	if c.OnUpdateTracking != nil {
		return c.OnUpdateTracking(ctx, d)
	}
	if c.Packages != nil {
		return c.Packages, nil
	}
	estimated := time.Now().AddDate(0, 0, 2)
	return []carrier.Package{{Delivered: false, DeliveryDate: &estimated}}, nil
}

// Ensure Client implements the Carrier interface.
var _ carrier.Carrier = (*Client)(nil)
