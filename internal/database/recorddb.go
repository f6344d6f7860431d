package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // libsql driver
	_ "modernc.org/sqlite"                               // SQLite driver

	"github.com/nao1215/decoyscan/internal/model"
)

// FileName is the journal database file name inside the data directory.
const FileName = "decoyscan.db"

// storedTimeFormat sorts lexically in time order for UTC values.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// ErrDuplicateSession is returned when a record with the same session
// identifier is already stored.
var ErrDuplicateSession = errors.New("session already stored")

// RecordDB stores visitor records.
type RecordDB struct {
	db *sql.DB

	// location is the file path or the remote URL without credentials.
	location string
}

// Options configures a local RecordDB.
type Options struct {
	// CreateIfNotExists creates the directory and file when missing.
	CreateIfNotExists bool

	// EnableWAL switches the journal to write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns options suitable for the local journal.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the local journal in dbDir.
func Open(dbDir string, opts Options) (*RecordDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	mode := "rw"
	if opts.CreateIfNotExists {
		mode = "rwc"
	}

	db, err := sql.Open("sqlite", dbPath+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	rdb := &RecordDB{db: db, location: dbPath}
	if err := rdb.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return rdb, nil
}

// OpenLibSQL connects to a libsql/Turso database and ensures the schema.
func OpenLibSQL(ctx context.Context, dbURL, authToken string) (*RecordDB, error) {
	connStr := libsqlConnString(dbURL, authToken)

	db, err := sql.Open("libsql", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open libsql database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("libsql database ping failed: %w", err)
	}

	location, _, _ := strings.Cut(dbURL, "?")
	rdb := &RecordDB{db: db, location: location}
	if err := rdb.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return rdb, nil
}

// libsqlConnString appends the query-escaped auth token to dbURL.
func libsqlConnString(dbURL, authToken string) string {
	if authToken == "" {
		return dbURL
	}
	sep := "?"
	if strings.Contains(dbURL, "?") {
		sep = "&"
	}
	return dbURL + sep + url.Values{"authToken": {authToken}}.Encode()
}

// Location returns the database file path or remote URL.
func (r *RecordDB) Location() string {
	return r.location
}

// Close closes the database connection.
func (r *RecordDB) Close() error {
	return r.db.Close()
}

func (r *RecordDB) createTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS visitor_records (
			session_id TEXT PRIMARY KEY,
			captured_at TEXT NOT NULL,
			public_address TEXT,
			country TEXT,
			threat_tier TEXT NOT NULL,
			is_likely_relay INTEGER NOT NULL DEFAULT 0,
			leaked_count INTEGER NOT NULL DEFAULT 0,
			record_json TEXT NOT NULL,
			failures_json TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_captured ON visitor_records(captured_at)`,
		`CREATE INDEX IF NOT EXISTS idx_records_tier ON visitor_records(threat_tier)`,
	}
	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRecord stores record together with the sub-collection failures of
// its run. A second record with the same session identifier is rejected
// with ErrDuplicateSession.
func (r *RecordDB) SaveRecord(ctx context.Context, record model.VisitorRecord, failures []model.Failure) error {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}
	if failures == nil {
		failures = []model.Failure{}
	}
	failuresJSON, err := json.Marshal(failures)
	if err != nil {
		return fmt.Errorf("failed to serialize failures: %w", err)
	}

	query := `
	INSERT INTO visitor_records
		(session_id, captured_at, public_address, country, threat_tier, is_likely_relay, leaked_count, record_json, failures_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id) DO NOTHING
	`

	relay := 0
	if record.IsLikelyRelay {
		relay = 1
	}

	result, err := r.db.ExecContext(ctx, query,
		record.SessionID,
		record.CapturedAt.UTC().Format(storedTimeFormat),
		record.PublicAddress,
		record.Country,
		record.ThreatTier.String(),
		relay,
		len(record.LeakedAddresses),
		string(recordJSON),
		string(failuresJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	n, err := result.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateSession, record.SessionID)
	}
	return nil
}

// GetRecord returns the record with sessionID, or nil when none exists.
func (r *RecordDB) GetRecord(ctx context.Context, sessionID string) (*model.VisitorRecord, []model.Failure, error) {
	query := `
	SELECT record_json, failures_json FROM visitor_records
	WHERE session_id = ?
	`

	var recordJSON string
	var failuresJSON sql.NullString
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(&recordJSON, &failuresJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get record: %w", err)
	}

	var record model.VisitorRecord
	if err := json.Unmarshal([]byte(recordJSON), &record); err != nil {
		return nil, nil, fmt.Errorf("failed to parse record: %w", err)
	}

	var failures []model.Failure
	if failuresJSON.Valid && failuresJSON.String != "" {
		if err := json.Unmarshal([]byte(failuresJSON.String), &failures); err != nil {
			failures = nil
		}
	}
	return &record, failures, nil
}

// RecordSummary is a stored record without its full payload.
type RecordSummary struct {
	SessionID     string
	CapturedAt    time.Time
	PublicAddress string
	Country       string
	ThreatTier    model.ThreatTier
	IsLikelyRelay bool
	LeakedCount   int
}

// ListRecords returns summaries of the most recent records, newest first.
// limit <= 0 returns every record.
func (r *RecordDB) ListRecords(ctx context.Context, limit int) ([]RecordSummary, error) {
	query := `
	SELECT session_id, captured_at, public_address, country, threat_tier, is_likely_relay, leaked_count
	FROM visitor_records
	ORDER BY captured_at DESC, session_id DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var results []RecordSummary
	for rows.Next() {
		var s RecordSummary
		var capturedAt, tier string
		var address, country sql.NullString
		var relay int

		if err := rows.Scan(&s.SessionID, &capturedAt, &address, &country, &tier, &relay, &s.LeakedCount); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		s.CapturedAt = parseTimestamp(capturedAt)
		s.PublicAddress = address.String
		s.Country = country.String
		s.IsLikelyRelay = relay != 0
		if t, err := model.ParseThreatTier(tier); err == nil {
			s.ThreatTier = t
		}
		results = append(results, s)
	}

	return results, rows.Err()
}

// CountRecords returns the number of stored records.
func (r *RecordDB) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM visitor_records").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// timestampFormats are tried in order when reading captured_at.
var timestampFormats = []string{
	storedTimeFormat,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp returns the zero time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
