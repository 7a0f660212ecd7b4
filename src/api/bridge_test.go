package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sp2any/src/bridge"
)

func TestBridgePairingIssueCodeRequiresAuth(t *testing.T) {
	handler := BridgePairingHandler{Pairing: bridge.NewPairing(nil)}

	req := httptest.NewRequest(http.MethodPost, "/v1/users/me/bridge/pair", nil)
	rec := httptest.NewRecorder()
	handler.IssueCode(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a resolved user id, got %d", rec.Code)
	}
}

func TestBridgePairingCompletePairingRejectsMissingFields(t *testing.T) {
	handler := BridgePairingHandler{Pairing: bridge.NewPairing(nil)}

	req := httptest.NewRequest(http.MethodPost, "/v1/bridge/pair", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.CompletePairing(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a request missing both fields, got %d", rec.Code)
	}
}
