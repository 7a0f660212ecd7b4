package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAccountRegisterRejectsMissingFields(t *testing.T) {
	handler := AccountHandler{}

	req := httptest.NewRequest(http.MethodPost, "/v1/register", strings.NewReader(`{"email":"","password":""}`))
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing email/password, got %d", rec.Code)
	}
}

func TestAccountLoginRejectsMalformedJSON(t *testing.T) {
	handler := AccountHandler{}

	req := httptest.NewRequest(http.MethodPost, "/v1/login", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", rec.Code)
	}
}
