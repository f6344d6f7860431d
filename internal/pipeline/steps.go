package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/decoyscan/internal/assemble"
	"github.com/nao1215/decoyscan/internal/model"
)

// Step names.
const (
	StepAddress     = "address"
	StepLeak        = "leak"
	StepFingerprint = "fingerprint"
)

// Reasons recorded in failures.
const (
	reasonNoEndpoint      = "no endpoint returned a valid address"
	reasonNoAddress       = "no public address"
	reasonGeoEmpty        = "lookup returned no locality"
	reasonNoProbe         = "no probe produced a value"
	reasonStepInterrupted = "interrupted"
)

// AddressResolver finds the public address.
type AddressResolver interface {
	ResolvePublicAddress(ctx context.Context) (string, bool)
}

// GeoResolver maps an address to a locality. A zero Geo means failure.
type GeoResolver interface {
	Resolve(ctx context.Context, address string) model.Geo
}

// LeakResolver gathers locally bound addresses.
type LeakResolver interface {
	ResolveLeakedAddresses(ctx context.Context) []string
}

// FingerprintCollector reads host signals.
type FingerprintCollector interface {
	Collect(ctx context.Context) (model.Fingerprint, bool)
}

// AddressStep resolves the public address and then, only if one was
// found, its locality. It owns PublicAddress and Geo.
type AddressStep struct {
	address AddressResolver
	geo     GeoResolver
	logger  *slog.Logger
}

// NewAddressStep creates an AddressStep. geo may be nil, in which case
// the geo partial is skipped.
func NewAddressStep(address AddressResolver, geo GeoResolver, logger *slog.Logger) *AddressStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &AddressStep{address: address, geo: geo, logger: logger}
}

// Name returns the step name.
func (s *AddressStep) Name() string { return StepAddress }

// Do resolves the address, then geo.
func (s *AddressStep) Do(ctx context.Context, partials *assemble.Partials) error {
	address, ok := s.address.ResolvePublicAddress(ctx)
	if !ok {
		partials.PublicAddress = assemble.Failure[string](reasonNoEndpoint)
		partials.Geo = assemble.Failure[model.Geo](reasonNoAddress)
		return nil
	}
	partials.PublicAddress = assemble.Success(address)

	if s.geo == nil {
		partials.Geo = assemble.Skip[model.Geo]("no geo resolver")
		return nil
	}
	if ctx.Err() != nil {
		partials.Geo = assemble.Failure[model.Geo](reasonStepInterrupted)
		return ctx.Err()
	}

	geo := s.geo.Resolve(ctx, address)
	if geo.IsZero() {
		partials.Geo = assemble.Failure[model.Geo](reasonGeoEmpty)
		return nil
	}
	partials.Geo = assemble.Success(geo)
	return nil
}

// LeakStep runs the negotiation probe. It owns LeakedAddresses. An empty
// set is a valid result.
type LeakStep struct {
	leaks LeakResolver
}

// NewLeakStep creates a LeakStep.
func NewLeakStep(leaks LeakResolver) *LeakStep {
	return &LeakStep{leaks: leaks}
}

// Name returns the step name.
func (s *LeakStep) Name() string { return StepLeak }

// Do gathers leaked addresses.
func (s *LeakStep) Do(ctx context.Context, partials *assemble.Partials) error {
	partials.LeakedAddresses = assemble.Success(s.leaks.ResolveLeakedAddresses(ctx))
	return nil
}

// FingerprintStep collects host signals. It owns Fingerprint.
type FingerprintStep struct {
	collector FingerprintCollector
}

// NewFingerprintStep creates a FingerprintStep.
func NewFingerprintStep(collector FingerprintCollector) *FingerprintStep {
	return &FingerprintStep{collector: collector}
}

// Name returns the step name.
func (s *FingerprintStep) Name() string { return StepFingerprint }

// Do collects the fingerprint.
func (s *FingerprintStep) Do(ctx context.Context, partials *assemble.Partials) error {
	fp, ok := s.collector.Collect(ctx)
	if !ok {
		partials.Fingerprint = assemble.Failure[model.Fingerprint](reasonNoProbe)
		return nil
	}
	partials.Fingerprint = assemble.Success(fp)
	return nil
}
