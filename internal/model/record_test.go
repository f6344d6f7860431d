package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestVisitorRecordJSON(t *testing.T) {
	t.Parallel()

	rec := VisitorRecord{
		SessionID:       "01J0000000000000000000000",
		PublicAddress:   "203.0.113.5",
		LeakedAddresses: []string{"192.168.1.20"},
		Fingerprint:     DefaultFingerprint(),
		Country:         "France",
		ThreatTier:      TierMedium,
		CapturedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := string(data)

	for _, want := range []string{
		`"session_id":"01J0000000000000000000000"`,
		`"public_address":"203.0.113.5"`,
		`"canvas_fingerprint":"unavailable"`,
		`"threat_tier":"MEDIUM"`,
		`"country":"France"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
	if strings.Contains(out, `"city"`) {
		t.Errorf("empty city should be omitted: %s", out)
	}

	var decoded VisitorRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.UserAgent != Unknown {
		t.Errorf("embedded fingerprint lost: %+v", decoded.Fingerprint)
	}
}

func TestVisitorRecordLeakedIsCopy(t *testing.T) {
	t.Parallel()

	rec := VisitorRecord{LeakedAddresses: []string{"10.0.0.2", "10.0.0.3"}}
	leaked := rec.Leaked()
	leaked[0] = "changed"

	if rec.LeakedAddresses[0] != "10.0.0.2" {
		t.Error("Leaked() must not expose the record's backing array")
	}
}

func TestHasFailure(t *testing.T) {
	t.Parallel()

	failures := []Failure{{Source: SourceGeo, Reason: "timeout"}}
	if !HasFailure(failures, SourceGeo) {
		t.Error("expected geo failure")
	}
	if HasFailure(failures, SourcePublicAddress) {
		t.Error("unexpected public address failure")
	}
}
