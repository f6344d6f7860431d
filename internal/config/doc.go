// Package config provides the run configuration for decoyscan: lookup
// endpoints and deadlines, egress routing, storage credentials, capability
// switches and report output preferences.
package config
