package model

import (
	"encoding/json"
	"fmt"
)

// ThreatTier is the coarse classification attached to a visitor record.
type ThreatTier int

const (
	// TierUnknown is only used when the whole pipeline failed or the
	// classifier is disabled.
	TierUnknown ThreatTier = iota

	// TierMedium is the default tier for any visitor that was not flagged
	// by the relay heuristic.
	TierMedium

	// TierHigh marks a visitor flagged as a likely relay (VPN/proxy) user.
	TierHigh
)

// String returns the wire representation of the tier.
func (t ThreatTier) String() string {
	switch t {
	case TierMedium:
		return "MEDIUM"
	case TierHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// ParseThreatTier converts a wire string back into a ThreatTier.
func ParseThreatTier(s string) (ThreatTier, error) {
	switch s {
	case "HIGH":
		return TierHigh, nil
	case "MEDIUM":
		return TierMedium, nil
	case "UNKNOWN", "":
		return TierUnknown, nil
	default:
		return TierUnknown, fmt.Errorf("unknown threat tier %q", s)
	}
}

// MarshalJSON encodes the tier as its string form.
func (t ThreatTier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes the tier from its string form.
func (t *ThreatTier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseThreatTier(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
