package plurality

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAcceptAllFriendRequests(t *testing.T) {
	var accepted []string
	mux := http.NewServeMux()
	mux.HandleFunc("/friends/requests/incoming", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"user-1"},{"id":"user-2"}]`))
	})
	mux.HandleFunc("/friends/request/respond/user-1", func(w http.ResponseWriter, r *http.Request) {
		accepted = append(accepted, "user-1")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/friends/request/respond/user-2", func(w http.ResponseWriter, r *http.Request) {
		accepted = append(accepted, "user-2")
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL, "token", 5*time.Second)
	if err := client.AcceptAllFriendRequests(t.Context()); err != nil {
		t.Fatalf("AcceptAllFriendRequests: %v", err)
	}
	if len(accepted) != 2 {
		t.Fatalf("expected both requests accepted, got %v", accepted)
	}
}

func TestAcceptAllFriendRequestsNoneToAccept(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/friends/requests/incoming", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL, "token", 5*time.Second)
	if err := client.AcceptAllFriendRequests(t.Context()); err != nil {
		t.Fatalf("AcceptAllFriendRequests: %v", err)
	}
}
