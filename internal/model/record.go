package model

import (
	"slices"
	"time"
)

// VisitorRecord is the single entity produced by one decoyscan run.
//
// SessionID and CapturedAt are always populated; every other field is
// independently optional. A record is assembled exactly once and handed to
// sinks by value; nothing mutates it afterwards.
type VisitorRecord struct {
	// SessionID is an opaque token generated once per run.
	SessionID string `json:"session_id"`

	// PublicAddress is the dotted-quad address seen by lookup services.
	// Empty when every resolution endpoint failed.
	PublicAddress string `json:"public_address,omitempty"`

	// LeakedAddresses are the locally bound or reflexive addresses surfaced
	// by the negotiation probe, in discovery order without duplicates.
	LeakedAddresses []string `json:"leaked_addresses"`

	Fingerprint

	// Country, City and Organization come from geo resolution.
	Country      string `json:"country,omitempty"`
	City         string `json:"city,omitempty"`
	Organization string `json:"organization,omitempty"`

	// IsLikelyRelay is the locality-mismatch heuristic. False when the
	// heuristic could not be evaluated.
	IsLikelyRelay bool `json:"is_likely_relay"`

	// ThreatTier is derived from IsLikelyRelay.
	ThreatTier ThreatTier `json:"threat_tier"`

	// CapturedAt is the time the record was assembled.
	CapturedAt time.Time `json:"captured_at"`
}

// Geo returns the locality portion of the record.
func (r VisitorRecord) Geo() Geo {
	return Geo{Country: r.Country, City: r.City, Organization: r.Organization}
}

// HasPublicAddress reports whether the public address was resolved.
func (r VisitorRecord) HasPublicAddress() bool {
	return r.PublicAddress != ""
}

// Leaked returns a copy of the leaked address list so callers cannot alter
// the record's backing array.
func (r VisitorRecord) Leaked() []string {
	return slices.Clone(r.LeakedAddresses)
}
