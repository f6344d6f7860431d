// Package geo maps a public address to an approximate locality.
//
// A run uses exactly one provider: an HTTP lookup service by default, or a
// local MaxMind database when one is configured. Lookups are never retried
// and a failed lookup yields the zero model.Geo.
package geo
