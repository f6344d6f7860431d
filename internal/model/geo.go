package model

// Geo is the approximate locality resolved for a public address.
// All fields are optional; the zero value means resolution failed.
type Geo struct {
	Country      string `json:"country,omitempty"`
	City         string `json:"city,omitempty"`
	Organization string `json:"organization,omitempty"`
}

// IsZero reports whether no locality was resolved.
func (g Geo) IsZero() bool {
	return g.Country == "" && g.City == "" && g.Organization == ""
}

// Fingerprint holds the host signals collected without network access.
// Every string field carries a sentinel instead of being empty.
type Fingerprint struct {
	UserAgent          string `json:"user_agent"`
	ScreenResolution   string `json:"screen_resolution"`
	TimezoneName       string `json:"timezone"`
	BrowserLocale      string `json:"locale"`
	ConnectionClass    string `json:"connection_type"`
	PluginCount        int    `json:"plugin_count"`
	CanvasFingerprint  string `json:"canvas_fingerprint"`
	FontsDetectedCount int    `json:"fonts_detected"`
}

// Sentinel values substituted when a signal cannot be read.
const (
	// Unknown is the default for environment scalars that could not be read.
	Unknown = "unknown"

	// CanvasUnavailable is used when rendering or encoding the surface failed.
	CanvasUnavailable = "unavailable"

	// CanvasBlocked is used when rendering is disallowed by configuration.
	CanvasBlocked = "blocked"
)

// DefaultFingerprint returns a Fingerprint where every scalar holds its
// sentinel. It is used when the collector is disabled or failed entirely.
func DefaultFingerprint() Fingerprint {
	return Fingerprint{
		UserAgent:         Unknown,
		ScreenResolution:  Unknown,
		TimezoneName:      Unknown,
		BrowserLocale:     Unknown,
		ConnectionClass:   Unknown,
		CanvasFingerprint: CanvasUnavailable,
	}
}
