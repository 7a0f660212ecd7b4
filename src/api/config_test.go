package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sp2any/src/config"
	"sp2any/src/users"
)

func TestConfigHandlerGetRequiresAuth(t *testing.T) {
	handler := ConfigHandler{}

	req := httptest.NewRequest(http.MethodGet, "/v1/users/me/config", nil)
	rec := httptest.NewRecorder()
	handler.Get(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a resolved user id, got %d", rec.Code)
	}
}

func TestConfigHandlerPutRejectsMalformedBody(t *testing.T) {
	handler := ConfigHandler{}

	req := withUserID(httptest.NewRequest(http.MethodPut, "/v1/users/me/config", strings.NewReader(`not json`)), users.NewUserId())
	rec := httptest.NewRecorder()
	handler.Put(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", rec.Code)
	}
}

func TestApplyRequestTranslatesUsePluralKitNameFlag(t *testing.T) {
	raw := config.Defaults()

	applyRequest(&raw, configRequest{UsePluralKitName: true})
	if raw.UsePluralKitName != users.PreferPluralKitName {
		t.Fatal("expected true to map to PreferPluralKitName")
	}

	applyRequest(&raw, configRequest{UsePluralKitName: false})
	if raw.UsePluralKitName != users.PreferSimplyPluralName {
		t.Fatal("expected false to map to PreferSimplyPluralName")
	}
}

func TestApplyRequestCarriesSecretFieldsThrough(t *testing.T) {
	raw := config.Defaults()
	applyRequest(&raw, configRequest{
		SimplyPluralToken: "sp-token",
		VRChatUsername:    "user",
		VRChatPassword:    "pass",
	})

	if raw.SimplyPluralToken.Secret != "sp-token" {
		t.Fatalf("expected simply plural token to carry through, got %q", raw.SimplyPluralToken.Secret)
	}
	if raw.VRChatUsername.Secret != "user" || raw.VRChatPassword.Secret != "pass" {
		t.Fatal("expected vrchat credentials to carry through")
	}
}
