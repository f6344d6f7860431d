// Package database stores visitor records in SQLite-compatible databases.
//
// RecordDB keeps one row per run, keyed by session identifier, with the
// full record serialized as JSON next to a few indexed summary columns.
// The same schema serves the local journal (modernc.org/sqlite, one file
// under the XDG data directory) and remote libsql/Turso databases.
package database
