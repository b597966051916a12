package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultPort is the HTTP port AxeOS-style firmware listens on
	DefaultPort = 80

	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 5 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for control calls.
	// Probes never retry; a failed probe is final for that cycle.
	DefaultMaxRetries = 2

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 5 * time.Second
)

// Client communicates with one miner's AxeOS-style REST API
type Client struct {
	// BaseURL is the base URL for the device (e.g., "http://192.168.1.100")
	BaseURL string

	// IP is the device address, kept for error context
	IP string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for control calls
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff enables exponential backoff for retries
	UseExponentialBackoff bool
}

// NewClient creates a client for a device at the given IP on the default port
func NewClient(ip string) *Client {
	return NewClientWithPort(ip, DefaultPort)
}

// NewClientWithPort creates a client for a device at a specific port
func NewClientWithPort(ip string, port int) *Client {
	return &Client{
		BaseURL:               fmt.Sprintf("http://%s:%d", ip, port),
		IP:                    ip,
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior for control calls
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// Probe performs a single health check against the device.
// Returns nil if the device answers /api/system/info with a success status.
// Probes are never retried.
func (c *Client) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/system/info", nil)
	if err != nil {
		return NewNetworkError("failed to create probe request", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return ClassifyNetworkError(err, c.IP)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return NewHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
	}

	return nil
}

// SystemInfo fetches and decodes the device's /api/system/info payload.
// Not retried; identity fetches share the probe's one-shot semantics.
func (c *Client) SystemInfo(ctx context.Context) (*SystemInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/system/info", nil)
	if err != nil {
		return nil, NewNetworkError("failed to create info request", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, ClassifyNetworkError(err, c.IP)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}

	var info SystemInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, NewParseError("failed to parse system info", err)
	}

	return &info, nil
}

// FetchIdentity probes the device and returns its classified identity
func (c *Client) FetchIdentity(ctx context.Context) (*Device, error) {
	info, err := c.SystemInfo(ctx)
	if err != nil {
		return nil, err
	}
	return info.Device(c.IP, time.Now()), nil
}

// FetchStats fetches a fresh stats snapshot from the device
func (c *Client) FetchStats(ctx context.Context) (*DeviceStats, error) {
	info, err := c.SystemInfo(ctx)
	if err != nil {
		return nil, err
	}
	return info.Stats(time.Now()), nil
}

// Restart asks the device to reboot
func (c *Client) Restart(ctx context.Context) error {
	return c.doWithRetry(ctx, func() error {
		return c.postAttempt(ctx, "/api/system/restart", nil)
	})
}

// SystemSettings carries the mutable subset of device settings for PATCH
// /api/system. Pointer fields are omitted when nil so partial updates only
// touch the named settings.
type SystemSettings struct {
	StratumURL   *string `json:"stratumURL,omitempty"`
	StratumPort  *int    `json:"stratumPort,omitempty"`
	StratumUser  *string `json:"stratumUser,omitempty"`
	Frequency    *int    `json:"frequency,omitempty"`
	CoreVoltage  *int    `json:"coreVoltage,omitempty"`
	FanSpeed     *int    `json:"fanspeed,omitempty"`
	AutoFanSpeed *int    `json:"autofanspeed,omitempty"`
	Hostname     *string `json:"hostname,omitempty"`
}

// UpdateSettings applies a partial settings update to the device
func (c *Client) UpdateSettings(ctx context.Context, settings *SystemSettings) error {
	body, err := json.Marshal(settings)
	if err != nil {
		return NewValidationError(fmt.Sprintf("invalid settings: %v", err))
	}
	return c.doWithRetry(ctx, func() error {
		return c.patchAttempt(ctx, "/api/system", body)
	})
}

// SetFanSpeed disables automatic fan control and pins the fan to a percentage
func (c *Client) SetFanSpeed(ctx context.Context, percent int) error {
	if percent < 0 || percent > 100 {
		return NewValidationError(fmt.Sprintf("fan speed must be 0-100, got %d", percent))
	}
	auto := 0
	return c.UpdateSettings(ctx, &SystemSettings{
		AutoFanSpeed: &auto,
		FanSpeed:     &percent,
	})
}

// WifiScan asks the device to scan for visible WiFi networks
func (c *Client) WifiScan(ctx context.Context) ([]WifiNetwork, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/system/wifi/scan", nil)
	if err != nil {
		return nil, NewNetworkError("failed to create wifi scan request", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, ClassifyNetworkError(err, c.IP)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}

	// Some firmware wraps the list in {"networks": [...]}, some returns a
	// bare array
	var wrapped struct {
		Networks []WifiNetwork `json:"networks"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Networks != nil {
		return wrapped.Networks, nil
	}
	var networks []WifiNetwork
	if err := json.Unmarshal(body, &networks); err != nil {
		return nil, NewParseError("failed to parse wifi scan response", err)
	}
	return networks, nil
}

// doWithRetry runs a control call with the client's retry policy.
// Non-retryable errors and context cancellation end the loop immediately.
func (c *Client) doWithRetry(ctx context.Context, attempt func() error) error {
	var lastErr error
	currentDelay := c.RetryDelay

	for try := 0; try <= c.MaxRetries; try++ {
		if try > 0 {
			select {
			case <-ctx.Done():
				return NewNetworkError("request cancelled", ctx.Err())
			case <-time.After(currentDelay):
			}

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		err := attempt()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
	}

	return lastErr
}

func (c *Client) postAttempt(ctx context.Context, path string, body []byte) error {
	return c.writeAttempt(ctx, http.MethodPost, path, body)
}

func (c *Client) patchAttempt(ctx context.Context, path string, body []byte) error {
	return c.writeAttempt(ctx, http.MethodPatch, path, body)
}

func (c *Client) writeAttempt(ctx context.Context, method, path string, body []byte) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return NewNetworkError(fmt.Sprintf("failed to create %s request", method), err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return ClassifyNetworkError(err, c.IP)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(resp.Body)
		return NewHTTPError(resp.StatusCode,
			fmt.Sprintf("%s %s failed with status %d: %s", method, path, resp.StatusCode, string(respBody)))
	}

	return nil
}
