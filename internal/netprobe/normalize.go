package netprobe

import (
	"encoding/json"
	"net/netip"
	"strings"
)

// addressKeys are the JSON fields IP echo services use for the caller's
// address, in lookup order.
var addressKeys = []string{"ip", "origin", "address", "query", "ip_addr", "ipAddress"}

// NormalizeResponse extracts a dotted-quad address from an echo service
// body. The first key from addressKeys present in the object is used; a
// comma-separated value contributes its first element and a trailing
// ":port" is stripped.
func NormalizeResponse(body []byte) (string, bool) {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", false
	}

	for _, key := range addressKeys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		value, ok := raw.(string)
		if !ok {
			return "", false
		}
		return NormalizeAddress(value)
	}
	return "", false
}

// NormalizeAddress reduces a raw address value to a strict dotted quad.
func NormalizeAddress(value string) (string, bool) {
	first, _, _ := strings.Cut(value, ",")
	host, _, _ := strings.Cut(strings.TrimSpace(first), ":")
	if !IsDottedQuad(host) {
		return "", false
	}
	return host, true
}

// IsDottedQuad reports whether s is exactly four decimal octets.
func IsDottedQuad(s string) bool {
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is4() && addr.String() == s
}
