package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"sp2any/src/secretstore"
)

func boolPtr(b bool) *bool { return &b }

func TestFeatureFlagsReadsEnabledColumns(t *testing.T) {
	entry := secretstore.Entries[secretstore.Encrypted]{
		EnableDiscord:          boolPtr(true),
		EnableDiscordStatusMsg: boolPtr(false),
		EnableVRChat:           boolPtr(true),
	}

	flags := featureFlags(entry)

	if !flags["discord"] {
		t.Error("expected discord flag to be true")
	}
	if flags["discord_status_message"] {
		t.Error("expected discord_status_message flag to be false")
	}
	if !flags["vrchat"] {
		t.Error("expected vrchat flag to be true")
	}
	if _, ok := flags["to_pluralkit"]; ok {
		t.Error("expected to_pluralkit to be absent when the column is nil")
	}
}

func TestRecordFetchFrontsAndUpdaterStatus(t *testing.T) {
	RecordFetchFronts("user-1", 2, 3, 1)
	RecordUpdaterStatus("user-1", "VRChat", 1)
	SetPluralKitRateLimitRemaining("user-1", 42)

	if got := testutil.ToFloat64(SimplyPluralFetchFrontersCount.WithLabelValues("user-1")); got != 2 {
		t.Fatalf("expected fronters count 2, got %v", got)
	}
	if got := testutil.ToFloat64(PluralKitRateLimitRemaining.WithLabelValues("user-1")); got != 42 {
		t.Fatalf("expected rate limit remaining 42, got %v", got)
	}
}
