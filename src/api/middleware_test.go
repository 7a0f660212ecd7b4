package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sp2any/src/auth"
	"sp2any/src/users"
)

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	handler := RequireAuth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run without a valid token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/users/me/status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	userID := users.NewUserId()
	token, err := auth.IssueToken("secret", userID, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	var gotUserID users.UserId
	handler := RequireAuth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := userIDFromContext(r)
		if !ok {
			t.Fatal("expected user id in context")
		}
		gotUserID = id
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/users/me/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotUserID != userID {
		t.Fatalf("expected user id %v, got %v", userID, gotUserID)
	}
}

func TestHealthHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	HealthHandler{}.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
