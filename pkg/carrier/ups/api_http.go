package ups

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/parcelwatch/tracking/pkg/carrier"
)

// HTTPAPIClient is the production implementation of APIClient backed by the
// UPS REST API.
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

// Login performs the OAuth2 client-credentials grant against the UPS auth
// endpoint. UPS takes the credentials as HTTP basic auth.
func (c *HTTPAPIClient) Login(ctx context.Context) (*OAuthResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/security/v1/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

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

// Track queries the tracking endpoint for one inquiry number.
func (c *HTTPAPIClient) Track(ctx context.Context, accessToken, trackingNumber string) (*TrackResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/track/v1/details/"+url.PathEscape(trackingNumber), nil)
	if err != nil {
		return nil, fmt.Errorf("creating track request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("transId", uuid.New().String())
	req.Header.Set("transactionSrc", "parcelwatch")

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
		Response struct {
			Errors []APIError `json:"errors"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && len(apiErr.Response.Errors) > 0 {
		message = apiErr.Response.Errors[0].Message
	}

	return carrier.NewTrackingError(carrierName, resp.StatusCode, message).
		WithGuidance("check the tracking number and the UPS client ID/secret")
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
