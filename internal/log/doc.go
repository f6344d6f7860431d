// Package log provides the slog setup used across decoyscan.
//
// SecureHandler wraps any slog.Handler and rewrites attributes before they
// are written:
//   - credential keys (apikey, authorization, storage_key, tokens) and
//     bearer or JWT-looking values are replaced with MaskValue;
//   - when address redaction is on, IPv4 addresses in string values and
//     string lists keep their first three octets only.
//
// Records written to sinks are not affected; only log output is.
//
//	logger := log.New(os.Stderr, log.Options{Verbose: true, RedactAddresses: true})
//	slog.SetDefault(logger)
package log
