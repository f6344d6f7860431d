package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/decoyscan/internal/model"
)

func openTestDB(t *testing.T) *RecordDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testRecord(id string, at time.Time) model.VisitorRecord {
	fp := model.DefaultFingerprint()
	fp.UserAgent = "decoyscan/test"
	fp.TimezoneName = "America/New_York"
	return model.VisitorRecord{
		SessionID:       id,
		PublicAddress:   "203.0.113.5",
		LeakedAddresses: []string{"192.168.1.4"},
		Fingerprint:     fp,
		Country:         "France",
		City:            "Paris",
		IsLikelyRelay:   true,
		ThreatTier:      model.TierHigh,
		CapturedAt:      at,
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database file", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "nested")
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
			t.Errorf("database file not created: %v", err)
		}
		if db.Location() != filepath.Join(dir, FileName) {
			t.Errorf("Location() = %q", db.Location())
		}
	})

	t.Run("missing database without create fails", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if err == nil {
			t.Fatal("expected error for missing database")
		}
	})
}

func TestSaveAndGetRecord(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()

	at := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	record := testRecord("01JAAAAAAAAAAAAAAAAAAAAAAA", at)
	failures := []model.Failure{{Source: model.SourceGeo, Reason: "timeout"}}

	if err := db.SaveRecord(ctx, record, failures); err != nil {
		t.Fatalf("SaveRecord() error = %v", err)
	}

	got, gotFailures, err := db.GetRecord(ctx, record.SessionID)
	if err != nil {
		t.Fatalf("GetRecord() error = %v", err)
	}
	if got == nil {
		t.Fatal("expected record, got nil")
	}
	if got.SessionID != record.SessionID || got.PublicAddress != record.PublicAddress {
		t.Errorf("GetRecord() = %+v", got)
	}
	if got.ThreatTier != model.TierHigh || !got.IsLikelyRelay {
		t.Errorf("tier = %v relay = %v", got.ThreatTier, got.IsLikelyRelay)
	}
	if got.TimezoneName != "America/New_York" {
		t.Errorf("TimezoneName = %q", got.TimezoneName)
	}
	if !got.CapturedAt.Equal(at) {
		t.Errorf("CapturedAt = %v, expected %v", got.CapturedAt, at)
	}
	if len(gotFailures) != 1 || gotFailures[0].Source != model.SourceGeo {
		t.Errorf("failures = %v", gotFailures)
	}

	t.Run("duplicate session is rejected", func(t *testing.T) {
		err := db.SaveRecord(ctx, record, nil)
		if !errors.Is(err, ErrDuplicateSession) {
			t.Errorf("SaveRecord() error = %v, expected ErrDuplicateSession", err)
		}
	})

	t.Run("unknown session returns nil", func(t *testing.T) {
		got, _, err := db.GetRecord(ctx, "missing")
		if err != nil {
			t.Fatalf("GetRecord() error = %v", err)
		}
		if got != nil {
			t.Errorf("GetRecord() = %+v, expected nil", got)
		}
	})
}

func TestListRecords(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	ids := []string{"A", "B", "C"}
	for i, id := range ids {
		r := testRecord(id, base.Add(time.Duration(i)*time.Minute+time.Duration(i)*time.Millisecond))
		if i == 1 {
			r.IsLikelyRelay = false
			r.ThreatTier = model.TierMedium
			r.PublicAddress = ""
			r.Country = ""
		}
		if err := db.SaveRecord(ctx, r, nil); err != nil {
			t.Fatalf("SaveRecord(%s) error = %v", id, err)
		}
	}

	all, err := db.ListRecords(ctx, 0)
	if err != nil {
		t.Fatalf("ListRecords() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(ListRecords()) = %d, expected 3", len(all))
	}
	if all[0].SessionID != "C" || all[2].SessionID != "A" {
		t.Errorf("order = %s %s %s, expected newest first", all[0].SessionID, all[1].SessionID, all[2].SessionID)
	}
	if all[1].ThreatTier != model.TierMedium || all[1].IsLikelyRelay || all[1].PublicAddress != "" {
		t.Errorf("summary B = %+v", all[1])
	}
	if all[0].LeakedCount != 1 {
		t.Errorf("LeakedCount = %d, expected 1", all[0].LeakedCount)
	}

	limited, err := db.ListRecords(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecords(2) error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("len(ListRecords(2)) = %d, expected 2", len(limited))
	}

	n, err := db.CountRecords(ctx)
	if err != nil || n != 3 {
		t.Errorf("CountRecords() = %d, %v", n, err)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected time.Time
	}{
		{"2026-10-18T08:00:00.500000000Z", time.Date(2026, 10, 18, 8, 0, 0, 500000000, time.UTC)},
		{"2026-10-18T08:00:00Z", time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)},
		{"2026-10-18 08:00:00", time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)},
		{"garbage", time.Time{}},
	}
	for _, tc := range testCases {
		if got := parseTimestamp(tc.input); !got.Equal(tc.expected) {
			t.Errorf("parseTimestamp(%q) = %v, expected %v", tc.input, got, tc.expected)
		}
	}
}

func TestLibsqlConnString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		url   string
		token string
		want  string
	}{
		{"no token", "libsql://db.example.turso.io", "", "libsql://db.example.turso.io"},
		{"plain token", "libsql://db.example.turso.io", "abc", "libsql://db.example.turso.io?authToken=abc"},
		{"existing query", "libsql://db.example.turso.io?tls=1", "abc", "libsql://db.example.turso.io?tls=1&authToken=abc"},
		{"reserved characters escaped", "libsql://db.example.turso.io", "a+b/c=&d", "libsql://db.example.turso.io?authToken=a%2Bb%2Fc%3D%26d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := libsqlConnString(tt.url, tt.token); got != tt.want {
				t.Errorf("libsqlConnString() = %q, want %q", got, tt.want)
			}
		})
	}
}
