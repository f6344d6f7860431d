package netprobe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultLookupTimeout bounds every single endpoint request.
const DefaultLookupTimeout = 5 * time.Second

// maxBodyBytes caps how much of an echo response is read.
const maxBodyBytes = 64 << 10

// DefaultEndpoints are the IP echo services queried in order.
var DefaultEndpoints = []string{
	"https://api.ipify.org?format=json",
	"https://ipinfo.io/json",
	"https://api.seeip.org/jsonip",
	"https://httpbin.org/ip",
}

// errStatus marks a non-2xx endpoint response.
var errStatus = errors.New("unexpected status")

// AddressResolver determines the public address by walking an ordered list
// of echo endpoints until one yields a valid answer.
type AddressResolver struct {
	client    *http.Client
	endpoints []string
	timeout   time.Duration
	logger    *slog.Logger
}

// ResolverOption configures an AddressResolver.
type ResolverOption func(*AddressResolver)

// WithHTTPClient sets the client used for lookups.
func WithHTTPClient(client *http.Client) ResolverOption {
	return func(r *AddressResolver) {
		r.client = client
	}
}

// WithEndpoints replaces the endpoint list. An empty list keeps the defaults.
func WithEndpoints(endpoints []string) ResolverOption {
	return func(r *AddressResolver) {
		if len(endpoints) > 0 {
			r.endpoints = endpoints
		}
	}
}

// WithLookupTimeout sets the per-endpoint deadline.
func WithLookupTimeout(timeout time.Duration) ResolverOption {
	return func(r *AddressResolver) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithResolverLogger sets the logger.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *AddressResolver) {
		r.logger = logger
	}
}

// NewAddressResolver creates a resolver over DefaultEndpoints.
func NewAddressResolver(opts ...ResolverOption) *AddressResolver {
	r := &AddressResolver{
		client:    http.DefaultClient,
		endpoints: DefaultEndpoints,
		timeout:   DefaultLookupTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Endpoints returns a copy of the configured endpoint list.
func (r *AddressResolver) Endpoints() []string {
	out := make([]string, len(r.endpoints))
	copy(out, r.endpoints)
	return out
}

// ResolvePublicAddress returns the first valid dotted-quad address reported
// by the endpoints, in order. A failing endpoint is skipped; if every
// endpoint fails the result is ("", false).
func (r *AddressResolver) ResolvePublicAddress(ctx context.Context) (string, bool) {
	for _, endpoint := range r.endpoints {
		if ctx.Err() != nil {
			return "", false
		}

		address, err := r.lookup(ctx, endpoint)
		if err != nil {
			r.logger.Debug("address endpoint failed", "endpoint", endpoint, "error", err)
			continue
		}

		r.logger.Debug("public address resolved", "endpoint", endpoint)
		return address, true
	}

	r.logger.Warn("public address could not be resolved", "endpoints", len(r.endpoints))
	return "", false
}

func (r *AddressResolver) lookup(ctx context.Context, endpoint string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %d", errStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}

	address, ok := NormalizeResponse(body)
	if !ok {
		return "", errors.New("no valid address in response")
	}
	return address, nil
}
