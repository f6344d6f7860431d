package model

// Source names one sub-collection of the pipeline.
type Source string

// Sub-collections that can fail independently.
const (
	SourcePublicAddress   Source = "public_address"
	SourceLeakedAddresses Source = "leaked_addresses"
	SourceGeo             Source = "geo"
	SourceFingerprint     Source = "fingerprint"
	SourceClassify        Source = "classify"
)

// Failure records a sub-collection that produced no value.
// Failures are informational: they never abort the pipeline.
type Failure struct {
	// Source is the sub-collection that failed.
	Source Source `json:"source"`

	// Reason is a short human-readable explanation.
	Reason string `json:"reason"`
}

// HasFailure reports whether failures contains an entry for source.
func HasFailure(failures []Failure, source Source) bool {
	for _, f := range failures {
		if f.Source == source {
			return true
		}
	}
	return false
}
