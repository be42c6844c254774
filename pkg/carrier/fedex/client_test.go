package fedex_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/parcelwatch/tracking/pkg/carrier"
	"github.com/parcelwatch/tracking/pkg/carrier/fedex"
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

func newTestClient(t *testing.T, cfg fedex.Config, api fedex.APIClient) *fedex.Client {
	t.Helper()
	logger := otelzap.New(zap.NewNop())
	return fedex.NewWithAPIClient(cfg, api, newMemTokenStore(), nil, logger, nil)
}

func configured() fedex.Config {
	return fedex.Config{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		BaseURL:      "https://apis.fedex.com",
	}
}

func TestClient_Identity(t *testing.T) {
	client := newTestClient(t, configured(), fedex.NewMockAPIClient())
	assert.Equal(t, "fedex", client.Name())
	assert.Equal(t, "FedEx", client.DisplayName())
	assert.Equal(t, "#4d148c", client.Color())
	assert.True(t, client.AbleToTrackRemotely())

	url := client.TrackingURL(&carrier.Delivery{TrackingNumber: "449044304137821"})
	assert.Equal(t, "https://www.fedex.com/fedextrack/?trknbr=449044304137821", url)
}

func TestClient_UpdateTracking_NoCredentialsFallsBackToManual(t *testing.T) {
	api := fedex.NewMockAPIClient()
	client := newTestClient(t, fedex.Config{}, api)
	assert.False(t, client.AbleToTrackRemotely())

	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.Local)
	delivery := &carrier.Delivery{
		TrackingNumber:     "449044304137821",
		ManualDelivered:    false,
		ManualDeliveryDate: &date,
	}

	pkgs, err := client.UpdateTracking(context.Background(), delivery)
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.False(t, pkgs[0].Delivered)
	assert.Equal(t, date, *pkgs[0].DeliveryDate)
	assert.Zero(t, api.TrackCalls, "no API call without credentials")
	assert.Zero(t, api.LoginCalls)
}

func TestClient_UpdateTracking_MockDefaults(t *testing.T) {
	api := fedex.NewMockAPIClient()
	client := newTestClient(t, configured(), api)

	pkgs, err := client.UpdateTracking(context.Background(), &carrier.Delivery{TrackingNumber: "449044304137821"})
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.False(t, pkgs[0].Delivered)
	require.NotNil(t, pkgs[0].DeliveryDate)
	require.Len(t, pkgs[0].Events, 1)
	assert.Equal(t, "Departed FedEx hub", pkgs[0].Events[0].Description)
	assert.Equal(t, "Memphis, TN", pkgs[0].Events[0].Location)
}

func TestClient_UpdateTracking_Delivered(t *testing.T) {
	api := fedex.NewMockAPIClient()
	delivered := time.Date(2026, 8, 18, 14, 32, 0, 0, time.UTC)
	api.OnTrack = func(ctx context.Context, accessToken, trackingNumber string) (*fedex.TrackResponse, error) {
		return &fedex.TrackResponse{
			Output: fedex.Output{
				CompleteTrackResults: []fedex.CompleteTrackResult{{
					TrackingNumber: trackingNumber,
					TrackResults: []fedex.TrackResult{{
						LatestStatusDetail: fedex.StatusDetail{Code: "DL", Description: "Delivered"},
						DateAndTimes: []fedex.DateAndTime{
							{Type: "ACTUAL_DELIVERY", DateTime: delivered.Format(time.RFC3339)},
						},
					}},
				}},
			},
		}, nil
	}
	client := newTestClient(t, configured(), api)

	pkgs, err := client.UpdateTracking(context.Background(), &carrier.Delivery{TrackingNumber: "449044304137821"})
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.True(t, pkgs[0].Delivered)
	require.NotNil(t, pkgs[0].DeliveryDate)
	assert.True(t, delivered.Equal(*pkgs[0].DeliveryDate))
}

func TestClient_UpdateTracking_ActualDateWinsOverEstimated(t *testing.T) {
	api := fedex.NewMockAPIClient()
	actual := time.Date(2026, 8, 18, 9, 0, 0, 0, time.UTC)
	api.OnTrack = func(ctx context.Context, accessToken, trackingNumber string) (*fedex.TrackResponse, error) {
		return &fedex.TrackResponse{
			Output: fedex.Output{
				CompleteTrackResults: []fedex.CompleteTrackResult{{
					TrackResults: []fedex.TrackResult{{
						LatestStatusDetail: fedex.StatusDetail{Code: "DL"},
						DateAndTimes: []fedex.DateAndTime{
							{Type: "ESTIMATED_DELIVERY", DateTime: "2026-08-20"},
							{Type: "ACTUAL_DELIVERY", DateTime: actual.Format(time.RFC3339)},
						},
					}},
				}},
			},
		}, nil
	}
	client := newTestClient(t, configured(), api)

	pkgs, err := client.UpdateTracking(context.Background(), &carrier.Delivery{TrackingNumber: "n"})
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.True(t, actual.Equal(*pkgs[0].DeliveryDate))
}

func TestClient_UpdateTracking_EstimatedDateReadAsLocalMidnight(t *testing.T) {
	api := fedex.NewMockAPIClient()
	api.OnTrack = func(ctx context.Context, accessToken, trackingNumber string) (*fedex.TrackResponse, error) {
		return &fedex.TrackResponse{
			Output: fedex.Output{
				CompleteTrackResults: []fedex.CompleteTrackResult{{
					TrackResults: []fedex.TrackResult{{
						LatestStatusDetail: fedex.StatusDetail{Code: "IT"},
						DateAndTimes: []fedex.DateAndTime{
							{Type: "ESTIMATED_DELIVERY", DateTime: "2026-08-25T00:00:00-06:00"},
						},
					}},
				}},
			},
		}, nil
	}
	client := newTestClient(t, configured(), api)

	pkgs, err := client.UpdateTracking(context.Background(), &carrier.Delivery{TrackingNumber: "n"})
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	want := time.Date(2026, 8, 25, 0, 0, 0, 0, time.Local)
	assert.True(t, want.Equal(*pkgs[0].DeliveryDate), "estimated date should be local midnight")
}

func TestClient_UpdateTracking_SplitShipment(t *testing.T) {
	api := fedex.NewMockAPIClient()
	api.OnTrack = func(ctx context.Context, accessToken, trackingNumber string) (*fedex.TrackResponse, error) {
		return &fedex.TrackResponse{
			Output: fedex.Output{
				CompleteTrackResults: []fedex.CompleteTrackResult{{
					TrackResults: []fedex.TrackResult{
						{LatestStatusDetail: fedex.StatusDetail{Code: "DL"}},
						{LatestStatusDetail: fedex.StatusDetail{Code: "IT"}},
					},
				}},
			},
		}, nil
	}
	client := newTestClient(t, configured(), api)

	pkgs, err := client.UpdateTracking(context.Background(), &carrier.Delivery{TrackingNumber: "n"})
	require.NoError(t, err)
	require.Len(t, pkgs, 2)
	assert.True(t, pkgs[0].Delivered)
	assert.False(t, pkgs[1].Delivered)
}

func TestClient_UpdateTracking_AuthFailure(t *testing.T) {
	api := fedex.NewMockAPIClient()
	api.SimulateErrors = true
	client := newTestClient(t, configured(), api)

	_, err := client.UpdateTracking(context.Background(), &carrier.Delivery{TrackingNumber: "n"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, carrier.ErrAuthenticationFailed))
	assert.Zero(t, api.TrackCalls, "no track call after failed login")
}

func TestClient_UpdateTracking_TrackingFailure(t *testing.T) {
	api := fedex.NewMockAPIClient()
	api.OnTrack = func(ctx context.Context, accessToken, trackingNumber string) (*fedex.TrackResponse, error) {
		return nil, carrier.NewTrackingError("fedex", http.StatusNotFound, "tracking number not found")
	}
	client := newTestClient(t, configured(), api)

	_, err := client.UpdateTracking(context.Background(), &carrier.Delivery{TrackingNumber: "n"})
	require.Error(t, err)
	var trackErr *carrier.TrackingError
	require.True(t, errors.As(err, &trackErr))
	assert.Equal(t, http.StatusNotFound, trackErr.StatusCode)
}

func TestClient_UpdateTracking_TokenReusedAcrossCalls(t *testing.T) {
	api := fedex.NewMockAPIClient()
	client := newTestClient(t, configured(), api)
	delivery := &carrier.Delivery{TrackingNumber: "449044304137821"}

	_, err := client.UpdateTracking(context.Background(), delivery)
	require.NoError(t, err)
	_, err = client.UpdateTracking(context.Background(), delivery)
	require.NoError(t, err)

	assert.Equal(t, 1, api.LoginCalls, "second call should reuse the cached token")
	assert.Equal(t, 2, api.TrackCalls)
}

func TestClient_Configured(t *testing.T) {
	client := newTestClient(t, configured(), fedex.NewMockAPIClient())
	assert.NoError(t, client.Configured())

	unconfigured := newTestClient(t, fedex.Config{}, fedex.NewMockAPIClient())
	assert.ErrorIs(t, unconfigured.Configured(), carrier.ErrNotConfigured)
}

func TestClient_UpdateTracking_CountsLogins(t *testing.T) {
	api := fedex.NewMockAPIClient()
	counter := &fakeCounter{}
	logger := otelzap.New(zap.NewNop())
	client := fedex.NewWithAPIClient(configured(), api, newMemTokenStore(), counter, logger, nil)
	delivery := &carrier.Delivery{TrackingNumber: "449044304137821"}

	_, err := client.UpdateTracking(context.Background(), delivery)
	require.NoError(t, err)
	_, err = client.UpdateTracking(context.Background(), delivery)
	require.NoError(t, err)

	assert.Equal(t, 1, counter.n, "one login across two tracked calls")
}
