package ups

import (
	"context"
	"fmt"
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

// Login returns a mock OAuth token valid for four hours, in the UPS
// issued_at + expires_in encoding.
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
		AccessToken: "ups-mock-token-" + uuid.New().String()[:8],
		TokenType:   "Bearer",
		IssuedAt:    fmt.Sprintf("%d", time.Now().UnixMilli()),
		ExpiresIn:   "14400",
	}, nil
}

// Track returns a single in-transit package scheduled three days out.
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

	now := time.Now()
	scheduled := now.AddDate(0, 0, 3).Format("20060102")
	return &TrackResponse{
		TrackResponse: TrackResponseBody{
			Shipment: []Shipment{
				{
					Package: []PackageDetail{
						{
							TrackingNumber: trackingNumber,
							CurrentStatus:  StatusDetail{Code: "021", Description: "In Transit"},
							DeliveryDate: []DeliveryDate{
								{Type: "SDD", Date: scheduled},
							},
							Activity: []Activity{
								{
									Date:     now.Format("20060102"),
									Time:     "081500",
									Status:   StatusDetail{Code: "021", Description: "Departed from Facility"},
									Location: ActivityLocation{Address: ActivityAddress{City: "Louisville", StateProvince: "KY"}},
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
