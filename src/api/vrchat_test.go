package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestVRChatLoginRejectsMissingCredentials(t *testing.T) {
	handler := VRChatAuthHandler{}

	req := httptest.NewRequest(http.MethodPost, "/v1/vrchat/login", strings.NewReader(`{"username":"","password":""}`))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing credentials, got %d", rec.Code)
	}
}

func TestVRChatLoginRejectsMalformedJSON(t *testing.T) {
	handler := VRChatAuthHandler{}

	req := httptest.NewRequest(http.MethodPost, "/v1/vrchat/login", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", rec.Code)
	}
}

func TestVRChatVerifyTwoFactorRejectsMalformedJSON(t *testing.T) {
	handler := VRChatAuthHandler{}

	req := httptest.NewRequest(http.MethodPost, "/v1/vrchat/verify-2fa", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()
	handler.VerifyTwoFactor(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", rec.Code)
	}
}
