package pipeline

import (
	"github.com/nao1215/decoyscan/internal/config"
)

// Collectors are the sources a pipeline can draw from. Leaks and
// Fingerprint are only used when the matching capability is on.
type Collectors struct {
	Address     AddressResolver
	Geo         GeoResolver
	Leaks       LeakResolver
	Fingerprint FingerprintCollector
}

// Build creates a pipeline whose steps follow caps. Disabled or missing
// collectors leave their partial skipped.
func Build(caps config.Capabilities, c Collectors, opts ...Option) *Pipeline {
	p := New(append([]Option{WithClassify(caps.Classify)}, opts...)...)

	var steps []Step
	if c.Address != nil {
		steps = append(steps, NewAddressStep(c.Address, c.Geo, p.logger))
	}
	if caps.LeakProbe && c.Leaks != nil {
		steps = append(steps, NewLeakStep(c.Leaks))
	}
	if caps.Fingerprint && c.Fingerprint != nil {
		steps = append(steps, NewFingerprintStep(c.Fingerprint))
	}
	p.AddSteps(steps...)
	return p
}
