package api

import (
	"encoding/json"
	"net/http"

	"sp2any/src/updaters"
)

// VRChatAuthHandler exposes the VRChat 2FA login ceremony (spec §4.4.1): a
// client submits (username, password), and either gets a cookie back
// directly or a two-factor challenge it must answer with a second call.
type VRChatAuthHandler struct{}

type vrchatLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /v1/vrchat/login.
func (VRChatAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req vrchatLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "username and password are required")
		return
	}

	withCookie, twoFactor, err := updaters.AuthenticateForNewCookie(r.Context(), updaters.VRChatCredentials{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}
	if twoFactor != nil {
		writeSuccess(w, http.StatusOK, map[string]any{
			"two_factor_required": true,
			"method":              twoFactor.Method,
			"tmp_cookie":          twoFactor.TmpCookie,
		})
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"two_factor_required": false,
		"username":            withCookie.Creds.Username,
		"password":            withCookie.Creds.Password,
		"cookie":              withCookie.Cookie,
	})
}

type vrchatTwoFactorRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Method    string `json:"method"`
	Code      string `json:"code"`
	TmpCookie string `json:"tmp_cookie"`
}

// VerifyTwoFactor handles POST /v1/vrchat/verify-2fa.
func (VRChatAuthHandler) VerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req vrchatTwoFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed request")
		return
	}
	withCookie, err := updaters.AuthenticateForNewCookieWith2FA(r.Context(), updaters.VRChatCredentialsWithTwoFactorAuth{
		Creds: updaters.VRChatCredentials{
			Username: req.Username,
			Password: req.Password,
		},
		Method:    updaters.TwoFactorAuthMethod(req.Method),
		Code:      req.Code,
		TmpCookie: req.TmpCookie,
	})
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{
		"username": withCookie.Creds.Username,
		"password": withCookie.Creds.Password,
		"cookie":   withCookie.Cookie,
	})
}
