// Package model defines the data structures shared across decoyscan.
//
// This package contains the following main types:
//   - VisitorRecord: the single record assembled once per run
//   - Geo: approximate locality resolved from a public address
//   - Fingerprint: host signals derived without network access
//   - ThreatTier: the coarse classification attached to a record
//   - Failure: a sub-collection that produced no value
//
// Models live in their own package so that the collectors, the assembler,
// the sinks and the report writers can share them without import cycles.
// Every type serializes to JSON for storage and report output.
package model
