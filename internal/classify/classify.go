// Package classify implements the locality-mismatch relay heuristic and the
// threat tier derived from it.
//
// The heuristic is a lexical substring check, not a timezone-to-country
// mapping. False positives are expected for hosts whose timezone name does
// not echo the country or city (for example "America/New_York" with country
// "United States"). The output contract is the boolean plus the tier, so the
// check is kept as is, except that an empty city is never matched: a bare
// substring test on "" would clear every visitor whose city was not
// resolved.
package classify

import (
	"strings"

	"github.com/nao1215/decoyscan/internal/model"
)

// countryPrefixLen is the number of leading country characters that count
// as a timezone match on their own.
const countryPrefixLen = 3

// Relay reports whether the visitor is likely behind a relay.
//
// known is false when timezone or country is missing (the sentinel
// model.Unknown counts as missing); relay is then false by convention.
func Relay(timezone, country, city string) (relay, known bool) {
	if isAbsent(timezone) || isAbsent(country) {
		return false, false
	}

	tz := strings.ToLower(timezone)
	c := strings.ToLower(country)
	ci := strings.ToLower(city)

	if strings.Contains(tz, c) {
		return false, true
	}
	// An empty city would match every timezone.
	if ci != "" && strings.Contains(tz, ci) {
		return false, true
	}
	prefix := c
	if len(prefix) > countryPrefixLen {
		prefix = prefix[:countryPrefixLen]
	}
	if strings.Contains(tz, prefix) {
		return false, true
	}
	return true, true
}

// Tier maps the heuristic result onto a threat tier.
// totalFailure marks a run where no sub-collection produced anything.
func Tier(relay, totalFailure bool) model.ThreatTier {
	if totalFailure {
		return model.TierUnknown
	}
	if relay {
		return model.TierHigh
	}
	return model.TierMedium
}

func isAbsent(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == model.Unknown
}
