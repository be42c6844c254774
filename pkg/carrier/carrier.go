// Package carrier provides an abstraction layer for parcel tracking carriers.
package carrier

import (
	"context"
)

// Carrier defines the interface that all tracking carriers must implement.
type Carrier interface {
	// Name returns the carrier identifier (e.g., "manual", "fedex", "ups").
	Name() string

	// DisplayName returns the human-readable carrier name.
	DisplayName() string

	// Color returns the display color associated with the carrier.
	Color() string

	// AbleToTrackRemotely reports whether the carrier has a remote API and
	// the required credentials were supplied. Presence check only; the
	// credentials are not validated.
	AbleToTrackRemotely() bool

	// TrackingURL builds the carrier's public tracking page URL for a
	// delivery. Pure string construction; it never fails.
	TrackingURL(d *Delivery) string

	// UpdateTracking fetches the current set of packages for a delivery.
	// Carriers without a remote API, or without configured credentials,
	// return the single manual package shape instead of calling out.
	UpdateTracking(ctx context.Context, d *Delivery) ([]Package, error)
}
