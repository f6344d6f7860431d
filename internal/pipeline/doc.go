// Package pipeline runs one collection pass and persists the result.
//
// A Pipeline holds independent steps. Execute runs them concurrently with
// errgroup; every step writes only its own field of assemble.Partials, so
// no locking is needed. Once all steps return, the partials are combined
// into a record, published to an optional observer and handed to the sink.
//
// Geo lookup is chained inside the address step: it runs only after, and
// only if, a public address resolved.
//
// Build assembles the step list from config.Capabilities.
package pipeline
