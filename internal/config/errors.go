package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidTimeout is returned when the lookup timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid lookup timeout: must be positive")

	// ErrInvalidLeakWindow is returned when the leak probe window is not positive.
	ErrInvalidLeakWindow = errors.New("invalid leak window: must be positive")

	// ErrInvalidAnimation is returned for a negative duration or a
	// non-positive tick.
	ErrInvalidAnimation = errors.New("invalid animation timing")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidEgress is returned for an unknown egress mode.
	ErrInvalidEgress = errors.New("invalid egress: must be direct, socks5 or tor")

	// ErrMissingProxyAddress is returned when socks5 egress has no proxy.
	ErrMissingProxyAddress = errors.New("socks5 egress requires a proxy address")

	// ErrMissingDBDir is returned when the journal is enabled without a
	// directory.
	ErrMissingDBDir = errors.New("journal enabled but no database directory set")
)
