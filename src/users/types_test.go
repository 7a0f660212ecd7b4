package users

import "testing"

func TestParseUserIdRoundTrip(t *testing.T) {
	id := NewUserId()
	parsed, err := ParseUserId(id.String())
	if err != nil {
		t.Fatalf("ParseUserId: %v", err)
	}
	if parsed != id {
		t.Fatalf("expected round-tripped id to equal original, got %v want %v", parsed, id)
	}
}

func TestParseUserIdRejectsGarbage(t *testing.T) {
	if _, err := ParseUserId("not-a-uuid"); err == nil {
		t.Fatal("expected an error for a malformed id")
	}
}

func TestNewUserIdGeneratesDistinctIds(t *testing.T) {
	if NewUserId() == NewUserId() {
		t.Fatal("expected two freshly generated ids to differ")
	}
}
