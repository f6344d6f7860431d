package assemble

import (
	"slices"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/nao1215/decoyscan/internal/classify"
	"github.com/nao1215/decoyscan/internal/model"
)

// Partials are the inputs of Combine, one per sub-collection.
type Partials struct {
	PublicAddress   Partial[string]
	LeakedAddresses Partial[[]string]
	Geo             Partial[model.Geo]
	Fingerprint     Partial[model.Fingerprint]

	// Classify enables the relay heuristic. When false the tier is
	// UNKNOWN and the relay flag false.
	Classify bool
}

// NewSessionID returns a fresh, lexically sortable session identifier.
func NewSessionID() string {
	return ulid.Make().String()
}

// Combine builds the record for one run. id and capturedAt are stamped
// verbatim (capturedAt in UTC). The returned failures list every
// sub-collection that ran and produced nothing, in a fixed order.
func Combine(id string, capturedAt time.Time, p Partials) (model.VisitorRecord, []model.Failure) {
	record := model.VisitorRecord{
		SessionID:       id,
		LeakedAddresses: []string{},
		Fingerprint:     model.DefaultFingerprint(),
		CapturedAt:      capturedAt.UTC(),
	}
	failures := []model.Failure{}

	fail := func(source model.Source, reason string) {
		failures = append(failures, model.Failure{Source: source, Reason: reason})
	}

	switch p.PublicAddress.Outcome {
	case Succeeded:
		record.PublicAddress = p.PublicAddress.Value
	case Failed:
		fail(model.SourcePublicAddress, p.PublicAddress.Reason)
	}

	switch p.LeakedAddresses.Outcome {
	case Succeeded:
		if p.LeakedAddresses.Value != nil {
			record.LeakedAddresses = slices.Clone(p.LeakedAddresses.Value)
		}
	case Failed:
		fail(model.SourceLeakedAddresses, p.LeakedAddresses.Reason)
	}

	switch p.Fingerprint.Outcome {
	case Succeeded:
		record.Fingerprint = p.Fingerprint.Value
	case Failed:
		fail(model.SourceFingerprint, p.Fingerprint.Reason)
	}

	switch p.Geo.Outcome {
	case Succeeded:
		record.Country = p.Geo.Value.Country
		record.City = p.Geo.Value.City
		record.Organization = p.Geo.Value.Organization
	case Failed:
		fail(model.SourceGeo, p.Geo.Reason)
	}

	if !p.Classify {
		record.ThreatTier = model.TierUnknown
		return record, failures
	}

	relay, known := classify.Relay(record.TimezoneName, record.Country, record.City)
	if !known {
		fail(model.SourceClassify, "timezone or country unknown")
	}
	record.IsLikelyRelay = relay
	record.ThreatTier = classify.Tier(relay, totalFailure(p))

	return record, failures
}

// totalFailure reports whether no sub-collection produced anything.
func totalFailure(p Partials) bool {
	return !p.PublicAddress.OK() &&
		!p.Geo.OK() &&
		!(p.LeakedAddresses.OK() && len(p.LeakedAddresses.Value) > 0) &&
		!p.Fingerprint.OK()
}
