package presence

import (
	"testing"
	"time"

	"sp2any/src/config"
	"sp2any/src/plurality"
)

func TestProjectNoFronters(t *testing.T) {
	if got := Project(config.ForUpdater{}, nil); got != nil {
		t.Fatalf("expected nil projection for empty fronter list, got %+v", got)
	}
}

func TestProjectJoinsNamesWithPrefix(t *testing.T) {
	cfg := config.ForUpdater{StatusPrefix: "F:"}
	fronters := []plurality.Fronter{
		{FronterID: "a", Name: "Alice"},
		{FronterID: "b", Name: "Bob"},
	}

	proj := Project(cfg, fronters)
	if proj == nil {
		t.Fatal("expected non-nil projection")
	}
	if proj.Details == nil || *proj.Details != "F: Alice, Bob" {
		t.Fatalf("unexpected details: %v", proj.Details)
	}
	if proj.PartyCurrent == nil || *proj.PartyCurrent != 2 {
		t.Fatalf("unexpected party current: %v", proj.PartyCurrent)
	}
	if proj.ActivityType != ActivityCustom || proj.StatusDisplayType != StatusDisplayName {
		t.Fatalf("unexpected display type/activity type: %+v", proj)
	}
}

func TestProjectUsesEarliestStartTime(t *testing.T) {
	later := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	earlier := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fronters := []plurality.Fronter{
		{FronterID: "a", Name: "Alice", StartTime: &later},
		{FronterID: "b", Name: "Bob", StartTime: &earlier},
	}

	proj := Project(config.ForUpdater{}, fronters)
	if proj.StartTime == nil || *proj.StartTime != earlier.UnixMilli() {
		t.Fatalf("expected earliest start time %d, got %v", earlier.UnixMilli(), proj.StartTime)
	}
}

func TestProjectPrefersPluralKitDisplayName(t *testing.T) {
	display := "PK Display"
	cfg := config.ForUpdater{UsePluralKitName: 1}
	fronters := []plurality.Fronter{
		{FronterID: "a", Name: "SP Name", PluralKitDisplayName: &display},
	}

	proj := Project(cfg, fronters)
	if proj.Details == nil || *proj.Details != display {
		t.Fatalf("expected display name %q, got %v", display, proj.Details)
	}
}
