package ups

import (
	"context"
	"fmt"
)

// APIClient defines the interface for UPS API operations. This abstraction
// allows for mock implementations during testing and the real HTTP
// implementation in production.
type APIClient interface {
	// Login performs an OAuth2 client-credentials login.
	Login(ctx context.Context) (*OAuthResponse, error)

	// Track fetches tracking details for a tracking number.
	Track(ctx context.Context, accessToken, trackingNumber string) (*TrackResponse, error)
}

// ============================================================================
// API Request/Response Types (match UPS Track API v1 structure)
// ============================================================================

// OAuthResponse is the UPS OAuth token response.
// POST /security/v1/oauth/token endpoint. Unlike FedEx, expiry arrives as
// two string fields: issued_at (epoch milliseconds) and expires_in
// (seconds). The token cache combines them into an absolute expiry.
type OAuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	IssuedAt    string `json:"issued_at"`
	ExpiresIn   string `json:"expires_in"`
}

// TrackResponse is the UPS tracking response.
// GET /api/track/v1/details/{inquiryNumber} endpoint.
type TrackResponse struct {
	TrackResponse TrackResponseBody `json:"trackResponse"`
}

// TrackResponseBody wraps the shipments found for an inquiry number.
type TrackResponseBody struct {
	Shipment []Shipment `json:"shipment"`
}

// Shipment holds the packages of one shipment.
type Shipment struct {
	Package []PackageDetail `json:"package"`
}

// PackageDetail describes one physical package.
type PackageDetail struct {
	TrackingNumber string         `json:"trackingNumber"`
	CurrentStatus  StatusDetail   `json:"currentStatus"`
	DeliveryDate   []DeliveryDate `json:"deliveryDate,omitempty"`
	Activity       []Activity     `json:"activity,omitempty"`
}

// StatusDetail is a package status.
type StatusDetail struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

// DeliveryDate carries one dated milestone as an 8-digit YYYYMMDD string.
// Type is DEL (actual), RDD (rescheduled), or SDD (originally scheduled).
type DeliveryDate struct {
	Type string `json:"type"`
	Date string `json:"date"`
}

// Activity is a single activity entry on a package.
type Activity struct {
	Date     string           `json:"date"` // YYYYMMDD
	Time     string           `json:"time"` // HHMMSS
	Status   StatusDetail     `json:"status"`
	Location ActivityLocation `json:"location"`
}

// ActivityLocation is where an activity occurred.
type ActivityLocation struct {
	Address ActivityAddress `json:"address"`
}

// ActivityAddress is the address portion of an activity location.
type ActivityAddress struct {
	City          string `json:"city,omitempty"`
	StateProvince string `json:"stateProvince,omitempty"`
}

// APIError represents an error body from the UPS API.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
