package fedex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/parcelwatch/tracking/pkg/carrier"
)

// HTTPAPIClient is the production implementation of APIClient backed by the
// FedEx REST API.
type HTTPAPIClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPAPIClient{
		baseURL:      cfg.BaseURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// Login performs the OAuth2 client-credentials grant against the FedEx auth
// endpoint.
func (c *HTTPAPIClient) Login(ctx context.Context) (*OAuthResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &carrier.AuthenticationError{
			Carrier:    carrierName,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	var result OAuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &carrier.AuthenticationError{
			Carrier:    carrierName,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Cause:      fmt.Errorf("decoding token response: %w", err),
		}
	}
	return &result, nil
}

// Track queries the tracking endpoint for one tracking number.
func (c *HTTPAPIClient) Track(ctx context.Context, accessToken, trackingNumber string) (*TrackResponse, error) {
	body := TrackRequest{
		IncludeDetailedScans: true,
		TrackingInfo: []TrackingInfo{
			{TrackingNumberInfo: TrackingNumberInfo{TrackingNumber: trackingNumber}},
		},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling track request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/track/v1/trackingnumbers", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating track request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result TrackResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, carrier.NewTrackingError(carrierName, resp.StatusCode, "unparsable tracking response").
			WithCause(err)
	}
	return &result, nil
}

// parseError extracts error information from an HTTP response.
func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	message := strings.TrimSpace(string(body))
	var apiErr struct {
		Errors []APIError `json:"errors"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && len(apiErr.Errors) > 0 {
		message = apiErr.Errors[0].Message
	}

	return carrier.NewTrackingError(carrierName, resp.StatusCode, message).
		WithGuidance("check the tracking number and the FedEx client ID/secret")
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
