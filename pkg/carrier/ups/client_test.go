package ups_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/parcelwatch/tracking/pkg/carrier"
	"github.com/parcelwatch/tracking/pkg/carrier/ups"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// memTokenStore is an in-memory tokencache.Store for tests.
type memTokenStore struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{entries: make(map[string][]byte)}
}

func (s *memTokenStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if raw, ok := s.entries[key]; ok {
		return raw, nil
	}
	return nil, errors.New("not found")
}

func (s *memTokenStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
	return nil
}

// fakeCounter satisfies tokencache.Counter for login-count assertions.
type fakeCounter struct {
	n int
}

func (c *fakeCounter) Inc() {
	c.n++
}

func newTestClient(t *testing.T, cfg ups.Config, api ups.APIClient) *ups.Client {
	t.Helper()
	logger := otelzap.New(zap.NewNop())
	return ups.NewWithAPIClient(cfg, api, newMemTokenStore(), nil, logger, nil)
}

func configured() ups.Config {
	return ups.Config{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		BaseURL:      "https://onlinetools.ups.com",
	}
}

func TestClient_Identity(t *testing.T) {
	client := newTestClient(t, configured(), ups.NewMockAPIClient())
	assert.Equal(t, "ups", client.Name())
	assert.Equal(t, "UPS", client.DisplayName())
	assert.Equal(t, "#351c15", client.Color())
	assert.True(t, client.AbleToTrackRemotely())

	url := client.TrackingURL(&carrier.Delivery{TrackingNumber: "1Z999AA10123456784"})
	assert.Equal(t, "https://www.ups.com/track?tracknum=1Z999AA10123456784", url)
}

func TestClient_UpdateTracking_NoCredentialsFallsBackToManual(t *testing.T) {
	api := ups.NewMockAPIClient()
	client := newTestClient(t, ups.Config{}, api)
	assert.False(t, client.AbleToTrackRemotely())

	delivery := &carrier.Delivery{
		TrackingNumber:  "1Z999AA10123456784",
		ManualDelivered: true,
	}

	pkgs, err := client.UpdateTracking(context.Background(), delivery)
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.True(t, pkgs[0].Delivered)
	assert.Zero(t, api.TrackCalls, "no API call without credentials")
	assert.Zero(t, api.LoginCalls)
}

func TestClient_UpdateTracking_MockDefaults(t *testing.T) {
	api := ups.NewMockAPIClient()
	client := newTestClient(t, configured(), api)

	pkgs, err := client.UpdateTracking(context.Background(), &carrier.Delivery{TrackingNumber: "1Z999AA10123456784"})
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.False(t, pkgs[0].Delivered)
	require.NotNil(t, pkgs[0].DeliveryDate)
	require.Len(t, pkgs[0].Events, 1)
	assert.Equal(t, "Departed from Facility", pkgs[0].Events[0].Description)
	assert.Equal(t, "Louisville, KY", pkgs[0].Events[0].Location)
}

func TestClient_UpdateTracking_Delivered(t *testing.T) {
	api := ups.NewMockAPIClient()
	api.OnTrack = func(ctx context.Context, accessToken, trackingNumber string) (*ups.TrackResponse, error) {
		return &ups.TrackResponse{
			TrackResponse: ups.TrackResponseBody{
				Shipment: []ups.Shipment{{
					Package: []ups.PackageDetail{{
						TrackingNumber: trackingNumber,
						CurrentStatus:  ups.StatusDetail{Code: "011", Description: "Delivered"},
						DeliveryDate: []ups.DeliveryDate{
							{Type: "DEL", Date: "20260818"},
						},
					}},
				}},
			},
		}, nil
	}
	client := newTestClient(t, configured(), api)

	pkgs, err := client.UpdateTracking(context.Background(), &carrier.Delivery{TrackingNumber: "1Z"})
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.True(t, pkgs[0].Delivered)
	want := time.Date(2026, 8, 18, 0, 0, 0, 0, time.Local)
	require.NotNil(t, pkgs[0].DeliveryDate)
	assert.True(t, want.Equal(*pkgs[0].DeliveryDate))
}

func TestClient_UpdateTracking_DateResolutionOrder(t *testing.T) {
	// DEL wins over RDD, RDD over SDD.
	tests := []struct {
		name  string
		dates []ups.DeliveryDate
		want  time.Time
	}{
		{
			name: "actual beats rescheduled and scheduled",
			dates: []ups.DeliveryDate{
				{Type: "SDD", Date: "20260820"},
				{Type: "RDD", Date: "20260822"},
				{Type: "DEL", Date: "20260819"},
			},
			want: time.Date(2026, 8, 19, 0, 0, 0, 0, time.Local),
		},
		{
			name: "rescheduled beats scheduled",
			dates: []ups.DeliveryDate{
				{Type: "SDD", Date: "20260820"},
				{Type: "RDD", Date: "20260822"},
			},
			want: time.Date(2026, 8, 22, 0, 0, 0, 0, time.Local),
		},
		{
			name: "scheduled alone",
			dates: []ups.DeliveryDate{
				{Type: "SDD", Date: "20260820"},
			},
			want: time.Date(2026, 8, 20, 0, 0, 0, 0, time.Local),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := ups.NewMockAPIClient()
			api.OnTrack = func(ctx context.Context, accessToken, trackingNumber string) (*ups.TrackResponse, error) {
				return &ups.TrackResponse{
					TrackResponse: ups.TrackResponseBody{
						Shipment: []ups.Shipment{{
							Package: []ups.PackageDetail{{
								CurrentStatus: ups.StatusDetail{Code: "021"},
								DeliveryDate:  tt.dates,
							}},
						}},
					},
				}, nil
			}
			client := newTestClient(t, configured(), api)

			pkgs, err := client.UpdateTracking(context.Background(), &carrier.Delivery{TrackingNumber: "1Z"})
			require.NoError(t, err)
			require.Len(t, pkgs, 1)
			require.NotNil(t, pkgs[0].DeliveryDate)
			assert.True(t, tt.want.Equal(*pkgs[0].DeliveryDate))
		})
	}
}

func TestClient_UpdateTracking_MalformedDateIgnored(t *testing.T) {
	api := ups.NewMockAPIClient()
	api.OnTrack = func(ctx context.Context, accessToken, trackingNumber string) (*ups.TrackResponse, error) {
		return &ups.TrackResponse{
			TrackResponse: ups.TrackResponseBody{
				Shipment: []ups.Shipment{{
					Package: []ups.PackageDetail{{
						CurrentStatus: ups.StatusDetail{Code: "021"},
						DeliveryDate: []ups.DeliveryDate{
							{Type: "SDD", Date: "not-a-date"},
						},
					}},
				}},
			},
		}, nil
	}
	client := newTestClient(t, configured(), api)

	pkgs, err := client.UpdateTracking(context.Background(), &carrier.Delivery{TrackingNumber: "1Z"})
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Nil(t, pkgs[0].DeliveryDate)
}

func TestClient_UpdateTracking_AuthFailure(t *testing.T) {
	api := ups.NewMockAPIClient()
	api.SimulateErrors = true
	client := newTestClient(t, configured(), api)

	_, err := client.UpdateTracking(context.Background(), &carrier.Delivery{TrackingNumber: "1Z"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, carrier.ErrAuthenticationFailed))
	assert.Zero(t, api.TrackCalls)
}

func TestClient_UpdateTracking_UnparsableExpiresIn(t *testing.T) {
	api := ups.NewMockAPIClient()
	api.OnLogin = func(ctx context.Context) (*ups.OAuthResponse, error) {
		return &ups.OAuthResponse{
			AccessToken: "token",
			IssuedAt:    fmt.Sprintf("%d", time.Now().UnixMilli()),
			ExpiresIn:   "soon",
		}, nil
	}
	client := newTestClient(t, configured(), api)

	_, err := client.UpdateTracking(context.Background(), &carrier.Delivery{TrackingNumber: "1Z"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, carrier.ErrAuthenticationFailed))
}

func TestClient_UpdateTracking_TokenReusedAcrossCalls(t *testing.T) {
	api := ups.NewMockAPIClient()
	client := newTestClient(t, configured(), api)
	delivery := &carrier.Delivery{TrackingNumber: "1Z999AA10123456784"}

	_, err := client.UpdateTracking(context.Background(), delivery)
	require.NoError(t, err)
	_, err = client.UpdateTracking(context.Background(), delivery)
	require.NoError(t, err)

	assert.Equal(t, 1, api.LoginCalls, "second call should reuse the cached token")
	assert.Equal(t, 2, api.TrackCalls)
}

func TestClient_Configured(t *testing.T) {
	client := newTestClient(t, configured(), ups.NewMockAPIClient())
	assert.NoError(t, client.Configured())

	unconfigured := newTestClient(t, ups.Config{}, ups.NewMockAPIClient())
	assert.ErrorIs(t, unconfigured.Configured(), carrier.ErrNotConfigured)
}

func TestClient_UpdateTracking_CountsLogins(t *testing.T) {
	api := ups.NewMockAPIClient()
	counter := &fakeCounter{}
	logger := otelzap.New(zap.NewNop())
	client := ups.NewWithAPIClient(configured(), api, newMemTokenStore(), counter, logger, nil)
	delivery := &carrier.Delivery{TrackingNumber: "1Z999AA10123456784"}

	_, err := client.UpdateTracking(context.Background(), delivery)
	require.NoError(t, err)
	_, err = client.UpdateTracking(context.Background(), delivery)
	require.NoError(t, err)

	assert.Equal(t, 1, counter.n, "one login across two tracked calls")
}
