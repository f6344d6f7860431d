// Package fingerprint derives identifying signals from the host without any
// network access: a rendering hash, an installed-font count and a handful of
// environment scalars.
//
// Collection is synchronous and never fails as a whole; every probe recovers
// from its own errors and substitutes a sentinel value.
package fingerprint
