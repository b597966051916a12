package discovery

import (
	"context"
	"time"

	"github.com/axefleet/axectl/internal/api"
)

// Prober identifies a device at one address within a timeout. It is the
// single probing primitive shared by the scanner, the mDNS confirmation
// step, and the coordinator's quick re-probe of cached addresses.
type Prober interface {
	ProbeDevice(ctx context.Context, ip string, timeout time.Duration) (*api.Device, error)
}

// HTTPProber probes devices through the AxeOS REST client
type HTTPProber struct{}

// NewHTTPProber creates the default REST-backed prober
func NewHTTPProber() *HTTPProber {
	return &HTTPProber{}
}

// ProbeDevice performs a single identification probe: one info fetch
// bounded by the timeout. No retries; a failed probe is final for the
// cycle that issued it.
func (p *HTTPProber) ProbeDevice(ctx context.Context, ip string, timeout time.Duration) (*api.Device, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := api.NewClient(ip)
	client.SetTimeout(timeout)
	return client.FetchIdentity(ctx)
}
