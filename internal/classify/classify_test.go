package classify

import (
	"testing"

	"github.com/nao1215/decoyscan/internal/model"
)

func TestRelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		timezone  string
		country   string
		city      string
		wantRelay bool
		wantKnown bool
	}{
		{
			name:      "timezone echoes country",
			timezone:  "Europe/Paris",
			country:   "France",
			city:      "Paris",
			wantRelay: false,
			wantKnown: true,
		},
		{
			name:      "empty city with matching country",
			timezone:  "America/Argentina/Buenos_Aires",
			country:   "Argentina",
			city:      "",
			wantRelay: false,
			wantKnown: true,
		},
		{
			name:      "timezone on another continent",
			timezone:  "America/New_York",
			country:   "France",
			city:      "Paris",
			wantRelay: true,
			wantKnown: true,
		},
		{
			name:      "country contained in timezone",
			timezone:  "America/Argentina/Buenos_Aires",
			country:   "Argentina",
			city:      "Cordoba",
			wantRelay: false,
			wantKnown: true,
		},
		{
			name:      "first three country characters match",
			timezone:  "Asia/Tokyo",
			country:   "Asiatic Republic",
			city:      "Nowhere",
			wantRelay: false,
			wantKnown: true,
		},
		{
			name:      "known false positive is reproduced",
			timezone:  "America/New_York",
			country:   "United States",
			city:      "Boston",
			wantRelay: true,
			wantKnown: true,
		},
		{
			name:      "case is ignored",
			timezone:  "EUROPE/BERLIN",
			country:   "germany",
			city:      "berlin",
			wantRelay: false,
			wantKnown: true,
		},
		{
			name:      "empty city does not match everything",
			timezone:  "Asia/Tokyo",
			country:   "Brazil",
			city:      "",
			wantRelay: true,
			wantKnown: true,
		},
		{
			name:      "missing country is unknown",
			timezone:  "Europe/Paris",
			country:   "",
			city:      "Paris",
			wantRelay: false,
			wantKnown: false,
		},
		{
			name:      "sentinel timezone is unknown",
			timezone:  model.Unknown,
			country:   "France",
			city:      "Paris",
			wantRelay: false,
			wantKnown: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			relay, known := Relay(tt.timezone, tt.country, tt.city)
			if relay != tt.wantRelay {
				t.Errorf("relay = %v, want %v", relay, tt.wantRelay)
			}
			if known != tt.wantKnown {
				t.Errorf("known = %v, want %v", known, tt.wantKnown)
			}
		})
	}
}

func TestRelayIsDeterministic(t *testing.T) {
	t.Parallel()

	for range 100 {
		if relay, _ := Relay("America/New_York", "France", "Paris"); !relay {
			t.Fatal("expected relay on every call")
		}
		if relay, _ := Relay("Europe/Paris", "France", "Paris"); relay {
			t.Fatal("expected no relay on every call")
		}
	}
}

func TestTier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		relay        bool
		totalFailure bool
		want         model.ThreatTier
	}{
		{"relay is high", true, false, model.TierHigh},
		{"no relay is medium", false, false, model.TierMedium},
		{"total failure is unknown", false, true, model.TierUnknown},
		{"total failure wins over relay", true, true, model.TierUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Tier(tt.relay, tt.totalFailure); got != tt.want {
				t.Errorf("Tier() = %s, want %s", got, tt.want)
			}
		})
	}
}
