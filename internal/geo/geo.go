package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/oschwald/geoip2-golang"

	"github.com/nao1215/decoyscan/internal/model"
)

// DefaultTimeout bounds a single lookup.
const DefaultTimeout = 5 * time.Second

// DefaultURLTemplate is the lookup URL; {address} is replaced with the
// address being resolved.
const DefaultURLTemplate = "https://ipapi.co/{address}/json/"

// addressPlaceholder marks where the address goes in a URL template.
const addressPlaceholder = "{address}"

const maxBodyBytes = 64 << 10

var (
	// ErrLookupFailed is returned when the provider reported a failure.
	ErrLookupFailed = errors.New("geo lookup reported failure")

	// ErrInvalidAddress is returned for an unparsable address.
	ErrInvalidAddress = errors.New("invalid address")
)

// Resolver resolves an address to a locality. The zero Geo means failure.
type Resolver interface {
	Resolve(ctx context.Context, address string) model.Geo
}

// HTTPResolver queries a JSON geolocation service.
type HTTPResolver struct {
	client      *http.Client
	urlTemplate string
	timeout     time.Duration
	logger      *slog.Logger
}

// HTTPOption configures an HTTPResolver.
type HTTPOption func(*HTTPResolver)

// WithHTTPClient sets the client used for the lookup.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(r *HTTPResolver) {
		r.client = client
	}
}

// WithURLTemplate sets the lookup URL template.
func WithURLTemplate(tmpl string) HTTPOption {
	return func(r *HTTPResolver) {
		if tmpl != "" {
			r.urlTemplate = tmpl
		}
	}
}

// WithTimeout sets the lookup deadline.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(r *HTTPResolver) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) HTTPOption {
	return func(r *HTTPResolver) {
		r.logger = logger
	}
}

// NewHTTPResolver creates a resolver for DefaultURLTemplate.
func NewHTTPResolver(opts ...HTTPOption) *HTTPResolver {
	r := &HTTPResolver{
		client:      http.DefaultClient,
		urlTemplate: DefaultURLTemplate,
		timeout:     DefaultTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// lookupResponse covers the field names used by common providers.
type lookupResponse struct {
	Status       string `json:"status"`
	Error        bool   `json:"error"`
	Country      string `json:"country"`
	CountryName  string `json:"country_name"`
	City         string `json:"city"`
	Org          string `json:"org"`
	Organization string `json:"organization"`
	AS           string `json:"as"`
	ISP          string `json:"isp"`
}

// Resolve performs one lookup for address.
func (r *HTTPResolver) Resolve(ctx context.Context, address string) model.Geo {
	geo, err := r.lookup(ctx, address)
	if err != nil {
		r.logger.Debug("geo lookup failed", "error", err)
		return model.Geo{}
	}
	return geo
}

func (r *HTTPResolver) lookup(ctx context.Context, address string) (model.Geo, error) {
	if net.ParseIP(address) == nil {
		return model.Geo{}, ErrInvalidAddress
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL(r.urlTemplate, address), nil)
	if err != nil {
		return model.Geo{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return model.Geo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.Geo{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return model.Geo{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if body.Error || strings.EqualFold(body.Status, "fail") {
		return model.Geo{}, ErrLookupFailed
	}

	return model.Geo{
		Country:      firstNonEmpty(body.CountryName, body.Country),
		City:         body.City,
		Organization: firstNonEmpty(body.Org, body.Organization, body.AS, body.ISP),
	}, nil
}

func lookupURL(tmpl, address string) string {
	if strings.Contains(tmpl, addressPlaceholder) {
		return strings.ReplaceAll(tmpl, addressPlaceholder, address)
	}
	return strings.TrimSuffix(tmpl, "/") + "/" + address
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// MMDBResolver reads MaxMind GeoLite2 City and, optionally, ASN databases.
type MMDBResolver struct {
	city   *geoip2.Reader
	asn    *geoip2.Reader
	logger *slog.Logger
}

// OpenMMDB opens the City database at cityPath and, when asnPath is not
// empty, the ASN database.
func OpenMMDB(cityPath, asnPath string, logger *slog.Logger) (*MMDBResolver, error) {
	if logger == nil {
		logger = slog.Default()
	}

	city, err := geoip2.Open(cityPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open city database: %w", err)
	}

	r := &MMDBResolver{city: city, logger: logger}
	if asnPath != "" {
		asn, err := geoip2.Open(asnPath)
		if err != nil {
			_ = city.Close()
			return nil, fmt.Errorf("failed to open ASN database: %w", err)
		}
		r.asn = asn
	}
	return r, nil
}

// Resolve looks address up locally. ctx is only checked before the lookup.
func (r *MMDBResolver) Resolve(ctx context.Context, address string) model.Geo {
	if ctx.Err() != nil {
		return model.Geo{}
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return model.Geo{}
	}

	var geo model.Geo
	rec, err := r.city.City(ip)
	if err != nil {
		r.logger.Debug("city lookup failed", "error", err)
		return model.Geo{}
	}
	geo.Country = rec.Country.Names["en"]
	geo.City = rec.City.Names["en"]

	if r.asn != nil {
		if asn, err := r.asn.ASN(ip); err == nil {
			geo.Organization = asn.AutonomousSystemOrganization
		}
	}
	return geo
}

// Close releases the databases.
func (r *MMDBResolver) Close() error {
	var errs []error
	if r.city != nil {
		errs = append(errs, r.city.Close())
	}
	if r.asn != nil {
		errs = append(errs, r.asn.Close())
	}
	return errors.Join(errs...)
}
