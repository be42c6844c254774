package fedex

import (
	"context"
	"fmt"
)

// APIClient defines the interface for FedEx API operations. This
// abstraction allows for mock implementations during testing and the real
// HTTP implementation in production.
type APIClient interface {
	// Login performs an OAuth2 client-credentials login.
	Login(ctx context.Context) (*OAuthResponse, error)

	// Track fetches tracking details for a tracking number.
	Track(ctx context.Context, accessToken, trackingNumber string) (*TrackResponse, error)
}

// ============================================================================
// API Request/Response Types (match FedEx Track API v1 structure)
// ============================================================================

// OAuthResponse is the FedEx OAuth token response.
// POST /oauth/token endpoint. ExpiresIn is seconds remaining at response
// time; the token cache converts it into an absolute expiry.
type OAuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

// TrackRequest is the body of POST /track/v1/trackingnumbers.
type TrackRequest struct {
	IncludeDetailedScans bool           `json:"includeDetailedScans"`
	TrackingInfo         []TrackingInfo `json:"trackingInfo"`
}

// TrackingInfo identifies one tracking number to query.
type TrackingInfo struct {
	TrackingNumberInfo TrackingNumberInfo `json:"trackingNumberInfo"`
}

// TrackingNumberInfo carries the tracking number itself.
type TrackingNumberInfo struct {
	TrackingNumber string `json:"trackingNumber"`
}

// TrackResponse is the nested FedEx tracking response.
type TrackResponse struct {
	Output Output `json:"output"`
}

// Output wraps the per-tracking-number results.
type Output struct {
	CompleteTrackResults []CompleteTrackResult `json:"completeTrackResults"`
}

// CompleteTrackResult holds the shipments found for one tracking number.
type CompleteTrackResult struct {
	TrackingNumber string        `json:"trackingNumber"`
	TrackResults   []TrackResult `json:"trackResults"`
}

// TrackResult describes one shipment for a tracking number. A single
// tracking number can fan out to several shipments on split deliveries.
type TrackResult struct {
	LatestStatusDetail StatusDetail  `json:"latestStatusDetail"`
	DateAndTimes       []DateAndTime `json:"dateAndTimes,omitempty"`
	ScanEvents         []ScanEvent   `json:"scanEvents,omitempty"`
}

// StatusDetail is the latest shipment status.
type StatusDetail struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

// DateAndTime carries one dated milestone. Type is ACTUAL_DELIVERY,
// ESTIMATED_DELIVERY, or APPOINTMENT_DELIVERY. The estimated value is a
// bare calendar date without time or timezone fidelity.
type DateAndTime struct {
	Type     string `json:"type"`
	DateTime string `json:"dateTime"`
}

// ScanEvent is a single activity entry on a shipment.
type ScanEvent struct {
	Date             string       `json:"date"`
	EventDescription string       `json:"eventDescription"`
	ScanLocation     ScanLocation `json:"scanLocation"`
}

// ScanLocation is where a scan event occurred.
type ScanLocation struct {
	City                string `json:"city,omitempty"`
	StateOrProvinceCode string `json:"stateOrProvinceCode,omitempty"`
}

// APIError represents an error body from the FedEx API.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
