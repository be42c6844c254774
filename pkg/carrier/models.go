package carrier

import (
	"time"
)

// Delivery is a user-created tracking entry. It is owned by the delivery
// store; the tracking core only reads it.
type Delivery struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"trackingNumber"`

	// Manual fields drive the offline carrier and the fallback path taken
	// by remote carriers when no credentials are configured.
	ManualDeliveryDate *time.Time `json:"manualDeliveryDate,omitempty"`
	ManualDelivered    bool       `json:"manualMarkedAsDelivered,omitempty"`

	// Debug marks fixture entries used for deterministic sample data.
	// The scheduler never refreshes them.
	Debug bool `json:"debug,omitempty"`
}

// TrackingEvent is a single activity entry reported by a carrier.
type TrackingEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
}

// Package is one physical shipped unit belonging to a Delivery. A delivery
// may fan out to zero or more packages, e.g. a split shipment. Packages are
// immutable once returned by a carrier and replaced wholesale on refresh.
type Package struct {
	Delivered    bool            `json:"delivered"`
	DeliveryDate *time.Time      `json:"deliveryDate,omitempty"`
	Events       []TrackingEvent `json:"events,omitempty"`
}

// Snapshot is the latest known package list for one delivery plus the time
// it was fetched. LastUpdated is only set immediately after a successful
// carrier call.
type Snapshot struct {
	Packages    []Package `json:"packages"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// ManualPackage synthesizes the single package shape used by the offline
// carrier, and by remote carriers when no credentials are configured.
func ManualPackage(d *Delivery) Package {
	return Package{
		Delivered:    d.ManualDelivered,
		DeliveryDate: d.ManualDeliveryDate,
	}
}
