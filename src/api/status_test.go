package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"sp2any/src/fleet"
	"sp2any/src/updaters"
	"sp2any/src/users"
)

func withUserID(r *http.Request, id users.UserId) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userIDContextKey, id))
}

func TestStatusHandlerRequiresAuth(t *testing.T) {
	handler := StatusHandler{Fleet: fleet.New(nil)}

	req := httptest.NewRequest(http.MethodGet, "/v1/users/me/status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a resolved user id, got %d", rec.Code)
	}
}

func TestStatusHandlerReturnsNotFoundForUnknownUser(t *testing.T) {
	handler := StatusHandler{Fleet: fleet.New(nil)}

	req := withUserID(httptest.NewRequest(http.MethodGet, "/v1/users/me/status", nil), users.NewUserId())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a user with no recorded statuses, got %d", rec.Code)
	}
}

func TestStatusHandlerReturnsRecordedStatuses(t *testing.T) {
	f := fleet.New(nil)
	userID := users.NewUserId()
	f.NotifyUpdaterStatuses(userID, updaters.Statuses{updaters.PlatformVRChat: updaters.Status{}})

	handler := StatusHandler{Fleet: f}
	req := withUserID(httptest.NewRequest(http.MethodGet, "/v1/users/me/status", nil), userID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
