package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "decoyscan"

	// DefaultLookupTimeout bounds each IP echo and geo request. A lookup
	// that has not answered within this window is abandoned, never retried.
	DefaultLookupTimeout = 5 * time.Second

	// DefaultLeakWindow bounds the negotiation session of the leak probe.
	// The session is torn down at the deadline whatever it has gathered.
	DefaultLeakWindow = 2 * time.Second

	// DefaultAnimationDuration is how long the fake scan runs before the
	// warning is revealed. It does not wait for collection.
	DefaultAnimationDuration = 6 * time.Second

	// DefaultAnimationTick is the progress update interval.
	DefaultAnimationTick = 150 * time.Millisecond

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultProxyAddress is the conventional local SOCKS5 address.
	DefaultProxyAddress = "127.0.0.1:9050"

	// DefaultHistoryLimit is the number of records listed by history.
	DefaultHistoryLimit = 20
)

// Egress modes.
const (
	// EgressDirect sends lookups straight from the host.
	EgressDirect = "direct"

	// EgressSOCKS5 routes lookups through ProxyAddress.
	EgressSOCKS5 = "socks5"

	// EgressTor routes lookups through an embedded Tor daemon.
	EgressTor = "tor"
)

// Capabilities switch optional sub-collections on or off. Address
// resolution and geo lookup always run.
type Capabilities struct {
	// LeakProbe enables the negotiation-session address probe.
	LeakProbe bool

	// Fingerprint enables host fingerprint collection.
	Fingerprint bool

	// Classify enables the relay heuristic. When off, the tier is UNKNOWN.
	Classify bool

	// Canvas allows the rendering probe. When off, the canvas signal is
	// reported as blocked.
	Canvas bool
}

// AllCapabilities returns every capability enabled.
func AllCapabilities() Capabilities {
	return Capabilities{
		LeakProbe:   true,
		Fingerprint: true,
		Classify:    true,
		Canvas:      true,
	}
}

// Storage holds the record store settings. Persistence is disabled unless
// both URL and Key are set.
type Storage struct {
	// URL is a REST table endpoint or a libsql:// database URL.
	URL string

	// Key is the API key, sent both as "apikey" and as a bearer token, or
	// the libsql auth token.
	Key string
}

// Configured reports whether both URL and Key are set.
func (s Storage) Configured() bool {
	return strings.TrimSpace(s.URL) != "" && strings.TrimSpace(s.Key) != ""
}

// IsLibSQL reports whether URL addresses a libsql database.
func (s Storage) IsLibSQL() bool {
	return strings.HasPrefix(s.URL, "libsql://")
}

// Config holds every option of a decoyscan run. It is populated from
// defaults, the configuration file, environment variables and CLI flags,
// in that order, and passed down explicitly.
type Config struct {
	// Endpoints are the IP echo services queried in order. Empty means the
	// built-in list.
	Endpoints []string

	// STUNServers are queried by the leak probe. Empty means the built-in
	// list.
	STUNServers []string

	// GeoURLTemplate is the geo lookup URL; "{address}" is substituted.
	// Empty means the built-in provider.
	GeoURLTemplate string

	// GeoCityDB is a MaxMind City database. When set, geo lookups are
	// answered locally instead of over HTTP.
	GeoCityDB string

	// GeoASNDB is an optional MaxMind ASN database used with GeoCityDB.
	GeoASNDB string

	// LookupTimeout bounds each network lookup.
	LookupTimeout time.Duration

	// LeakWindow bounds the leak probe.
	LeakWindow time.Duration

	// Capabilities selects the optional sub-collections.
	Capabilities Capabilities

	// UserAgent overrides the reported agent string when not empty.
	UserAgent string

	// Storage configures the record store.
	Storage Storage

	// Journal keeps a local copy of every record in DBDir.
	Journal bool

	// DBDir is the directory holding the local journal database.
	DBDir string

	// Egress selects how lookups leave the host: EgressDirect,
	// EgressSOCKS5 or EgressTor. The leak probe always goes direct.
	Egress string

	// ProxyAddress is the SOCKS5 proxy for EgressSOCKS5.
	ProxyAddress string

	// TorStartupTimeout bounds embedded Tor bootstrap for EgressTor.
	TorStartupTimeout time.Duration

	// AnimationDuration is the length of the fake scan.
	AnimationDuration time.Duration

	// AnimationTick is the progress update interval.
	AnimationTick time.Duration

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches logs to JSON lines.
	LogJSON bool

	// JSONReport writes the record as JSON. Mutually exclusive with
	// MarkdownReport.
	JSONReport bool

	// MarkdownReport writes the record as Markdown.
	MarkdownReport bool

	// ReportFile is written instead of stdout when not empty.
	ReportFile string

	// ConfigFilePath is an explicit configuration file. When empty,
	// .decoyscan is searched in the working and home directories.
	ConfigFilePath string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		LookupTimeout:     DefaultLookupTimeout,
		LeakWindow:        DefaultLeakWindow,
		Capabilities:      AllCapabilities(),
		Journal:           true,
		DBDir:             XDGDataDir(),
		Egress:            EgressDirect,
		ProxyAddress:      DefaultProxyAddress,
		TorStartupTimeout: DefaultTorStartupTimeout,
		AnimationDuration: DefaultAnimationDuration,
		AnimationTick:     DefaultAnimationTick,
	}
}

// XDGDataDir returns the XDG data directory for decoyscan.
// On Linux: ~/.local/share/decoyscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for decoyscan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.LookupTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.LeakWindow <= 0 {
		return ErrInvalidLeakWindow
	}
	if c.AnimationDuration < 0 || c.AnimationTick <= 0 {
		return ErrInvalidAnimation
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	switch c.Egress {
	case EgressDirect, EgressTor:
	case EgressSOCKS5:
		if c.ProxyAddress == "" {
			return ErrMissingProxyAddress
		}
	default:
		return ErrInvalidEgress
	}

	if c.Journal && c.DBDir == "" {
		return ErrMissingDBDir
	}
	return nil
}
