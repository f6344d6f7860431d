// Package sink persists visitor records.
//
// A Sink never returns an error to its caller. The outcome of a write,
// including transport failures and rejected requests, is captured in a
// Result so the pipeline can report it and carry on.
package sink
