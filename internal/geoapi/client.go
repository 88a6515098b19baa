package geoapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lbogdanov/nixieclock/internal/logging"
	"github.com/lbogdanov/nixieclock/internal/version"
)

const (
	// DefaultGeolocationURL is the geolocation endpoint
	DefaultGeolocationURL = "https://www.googleapis.com/geolocation/v1/geolocate"

	// DefaultTimezoneURL is the timezone endpoint, also used as the time reference
	DefaultTimezoneURL = "https://maps.googleapis.com/maps/api/timezone/json"

	// DefaultTimeout bounds every single call
	DefaultTimeout = 5 * time.Second

	// response bodies are small JSON documents
	maxBodySize = 64 << 10

	serviceGeolocation = "geolocation"
	serviceTimezone    = "timezone"
	serviceTime        = "time"
)

// Client talks to the geolocation and timezone services.
// A single Client makes no retries; callers decide the cadence.
type Client struct {
	// GeolocationURL is the full geolocation endpoint URL
	GeolocationURL string

	// TimezoneURL is the full timezone endpoint URL
	TimezoneURL string

	// APIKey is sent as the "key" query parameter on every call
	APIKey string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client
}

// NewClient creates a client for the default endpoints.
// Certificate validation is disabled: the device has no trust store.
func NewClient(apiKey string) *Client {
	return &Client{
		GeolocationURL: DefaultGeolocationURL,
		TimezoneURL:    DefaultTimezoneURL,
		APIKey:         apiKey,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // no trust store on the device
			},
		},
	}
}

// SetTimeout sets the per-call timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// Geolocate resolves a position from nearby access points
func (c *Client) Geolocate(ctx context.Context, req *GeoRequest) (*GeoResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &APIError{Type: ErrTypeEncode, Service: serviceGeolocation, Message: "failed to encode request", Err: err}
	}

	u, err := c.endpoint(c.GeolocationURL, nil)
	if err != nil {
		return nil, &APIError{Type: ErrTypeEncode, Service: serviceGeolocation, Message: "invalid endpoint", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, classifyNetworkError(serviceGeolocation, "failed to create POST request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var out GeoResponse
	if err := c.doJSON(httpReq, serviceGeolocation, &out); err != nil {
		return nil, err
	}
	if out.Location == nil {
		return nil, newParseError(serviceGeolocation, "response has no location", nil)
	}
	return &out, nil
}

// ServerDate issues a HEAD request to the timezone endpoint and returns
// the raw Date response header.
func (c *Client) ServerDate(ctx context.Context) (string, error) {
	u, err := c.endpoint(c.TimezoneURL, nil)
	if err != nil {
		return "", &APIError{Type: ErrTypeEncode, Service: serviceTime, Message: "invalid endpoint", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return "", classifyNetworkError(serviceTime, "failed to create HEAD request", err)
	}
	c.decorate(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		apiErr := classifyNetworkError(serviceTime, "HEAD request failed", err)
		logging.LogServiceCall(serviceTime, 0, apiErr)
		return "", apiErr
	}
	defer func() { _ = resp.Body.Close() }()

	// The Date header is present on error responses too, but an error
	// status means the reference came from something other than the service.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newHTTPError(serviceTime, resp.StatusCode)
		logging.LogServiceCall(serviceTime, resp.StatusCode, apiErr)
		return "", apiErr
	}

	date := resp.Header.Get("Date")
	if date == "" {
		apiErr := newParseError(serviceTime, "response has no Date header", nil)
		logging.LogServiceCall(serviceTime, resp.StatusCode, apiErr)
		return "", apiErr
	}
	logging.LogServiceCall(serviceTime, resp.StatusCode, nil)
	return date, nil
}

// Timezone looks up the UTC offsets in effect at (lat, lng) at the given
// epoch timestamp.
func (c *Client) Timezone(ctx context.Context, lat, lng float64, timestamp int64) (*TimezoneResponse, error) {
	params := url.Values{}
	params.Set("location", strconv.FormatFloat(lat, 'f', -1, 64)+","+strconv.FormatFloat(lng, 'f', -1, 64))
	params.Set("timestamp", strconv.FormatInt(timestamp, 10))

	u, err := c.endpoint(c.TimezoneURL, params)
	if err != nil {
		return nil, &APIError{Type: ErrTypeEncode, Service: serviceTimezone, Message: "invalid endpoint", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, classifyNetworkError(serviceTimezone, "failed to create GET request", err)
	}

	var out TimezoneResponse
	if err := c.doJSON(req, serviceTimezone, &out); err != nil {
		return nil, err
	}
	if out.Status != "" && out.Status != "OK" {
		return nil, &APIError{
			Type:      ErrTypeStatus,
			Service:   serviceTimezone,
			Message:   fmt.Sprintf("status %s: %s", out.Status, out.ErrorMessage),
			APIStatus: out.Status,
		}
	}
	if _, _, err := out.Offsets(); err != nil {
		return nil, newParseError(serviceTimezone, "invalid offsets", err)
	}
	return &out, nil
}

func (c *Client) doJSON(req *http.Request, service string, out any) error {
	c.decorate(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		apiErr := classifyNetworkError(service, req.Method+" request failed", err)
		logging.LogServiceCall(service, 0, apiErr)
		return apiErr
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newHTTPError(service, resp.StatusCode)
		logging.LogServiceCall(service, resp.StatusCode, apiErr)
		return apiErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		apiErr := classifyNetworkError(service, "failed to read response body", err)
		logging.LogServiceCall(service, resp.StatusCode, apiErr)
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		apiErr := newParseError(service, "failed to parse JSON response", err)
		logging.LogServiceCall(service, resp.StatusCode, apiErr)
		return apiErr
	}

	logging.LogServiceCall(service, resp.StatusCode, nil)
	return nil
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "application/json")
}

// endpoint appends the API key and params to base, keeping any query the
// base URL already carries.
func (c *Client) endpoint(base string, params url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	if c.APIKey != "" {
		q.Set("key", c.APIKey)
	}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
