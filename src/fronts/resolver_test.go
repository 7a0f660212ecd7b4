package fronts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sp2any/src/plurality"
	"sp2any/src/users"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/fronters", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "fe1", "content": map[string]any{"uid": "sys1", "member": "alice", "live": true, "startTime": 0}},
			{"id": "fe2", "content": map[string]any{"uid": "sys1", "member": "bob", "live": true, "startTime": 0}},
		})
	})
	mux.HandleFunc("/members/sys1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "alice", "content": map[string]any{"name": "Alice", "archived": false}},
			{"id": "bob", "content": map[string]any{"name": "Bob", "archived": true}},
			{"id": "carol", "content": map[string]any{"name": "Carol", "archived": false}},
		})
	})
	mux.HandleFunc("/customFields/sys1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{})
	})
	return httptest.NewServer(mux)
}

func TestResolveAppliesArchivedFilterAndInnerJoin(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	client := plurality.NewClient(srv.URL, "tok", time.Second)
	out, err := Resolve(context.Background(), client, Options{
		ShowMembersNonArchived: true,
		ShowMembersArchived:    false,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// bob is archived and ShowMembersArchived=false -> excluded even though
	// he has a front entry. carol has no front entry -> excluded. Only
	// alice should remain.
	if len(out) != 1 || out[0].FronterID != "alice" {
		t.Fatalf("expected only alice, got %+v", out)
	}
}

func TestResolveEmptyFrontsReturnsEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fronters", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := plurality.NewClient(srv.URL, "tok", time.Second)
	out, err := Resolve(context.Background(), client, Options{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty, got %+v", out)
	}
}

func TestPassesFineGrainedRequiresIntersection(t *testing.T) {
	allow := map[string]struct{}{"a": {}}
	if passesFineGrained([]string{"b"}, users.ViaPrivacyBuckets, allow) {
		t.Fatalf("expected no intersection to fail")
	}
	if !passesFineGrained([]string{"a", "b"}, users.ViaPrivacyBuckets, allow) {
		t.Fatalf("expected intersection to pass")
	}
	if !passesFineGrained(nil, users.NoFineGrained, nil) {
		t.Fatalf("NoFineGrained should always pass")
	}
}
