package fedex

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/parcelwatch/tracking/pkg/carrier"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	LoginCalls int
	TrackCalls int

	OnLogin func(ctx context.Context) (*OAuthResponse, error)
	OnTrack func(ctx context.Context, accessToken, trackingNumber string) (*TrackResponse, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// Login returns a mock OAuth token valid for an hour.
func (m *MockAPIClient) Login(ctx context.Context) (*OAuthResponse, error) {
	m.LoginCalls++
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &carrier.AuthenticationError{
			Carrier:    carrierName,
			StatusCode: http.StatusUnauthorized,
			Status:     "401 Unauthorized",
		}
	}

	if m.OnLogin != nil {
		return m.OnLogin(ctx)
	}

	return &OAuthResponse{
		AccessToken: "fedex-mock-token-" + uuid.New().String()[:8],
		TokenType:   "bearer",
		ExpiresIn:   3600,
	}, nil
}

// Track returns a single in-transit shipment estimated three days out.
func (m *MockAPIClient) Track(ctx context.Context, accessToken, trackingNumber string) (*TrackResponse, error) {
	m.TrackCalls++
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, carrier.NewTrackingError(carrierName, http.StatusServiceUnavailable, "simulated API error")
	}

	if m.OnTrack != nil {
		return m.OnTrack(ctx, accessToken, trackingNumber)
	}

	estimated := time.Now().AddDate(0, 0, 3).Format("2006-01-02")
	return &TrackResponse{
		Output: Output{
			CompleteTrackResults: []CompleteTrackResult{
				{
					TrackingNumber: trackingNumber,
					TrackResults: []TrackResult{
						{
							LatestStatusDetail: StatusDetail{Code: "IT", Description: "In transit"},
							DateAndTimes: []DateAndTime{
								{Type: "ESTIMATED_DELIVERY", DateTime: estimated},
							},
							ScanEvents: []ScanEvent{
								{
									Date:             time.Now().Add(-6 * time.Hour).Format(time.RFC3339),
									EventDescription: "Departed FedEx hub",
									ScanLocation:     ScanLocation{City: "Memphis", StateOrProvinceCode: "TN"},
								},
							},
						},
					},
				},
			},
		},
	}, nil
}

// Ensure MockAPIClient implements APIClient interface
var _ APIClient = (*MockAPIClient)(nil)
