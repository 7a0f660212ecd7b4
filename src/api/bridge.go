package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"sp2any/src/bridge"
	"sp2any/src/secretstore"
)

// BridgePairingHandler exposes the pairing ceremony (spec §4.5.1) that lets
// a desktop companion obtain the bridge secret it uses to authenticate
// BridgeStream.
type BridgePairingHandler struct {
	Pairing *bridge.Pairing
}

// IssueCode handles POST /v1/users/me/bridge/pair: the logged-in caller
// requests a fresh, short-lived pairing code to type into the desktop app.
func (h BridgePairingHandler) IssueCode(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	code, err := h.Pairing.IssuePairingCode(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "could not issue pairing code")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"pairing_code": code})
}

type completePairingRequest struct {
	DiscordUserID string `json:"discord_user_id"`
	PairingCode   string `json:"pairing_code"`
}

// CompletePairing handles POST /v1/bridge/pair: the desktop companion,
// unauthenticated until now, exchanges a (discord_user_id, pairing_code)
// pair for the bridge secret it uses on every subsequent BridgeStream
// connection.
func (h BridgePairingHandler) CompletePairing(w http.ResponseWriter, r *http.Request) {
	var req completePairingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DiscordUserID == "" || req.PairingCode == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "discord_user_id and pairing_code are required")
		return
	}
	secret, err := h.Pairing.Pair(r.Context(), req.DiscordUserID, req.PairingCode)
	if err != nil {
		if errors.Is(err, secretstore.ErrPairingCodeNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "no matching or unexpired pairing code")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "could not complete pairing")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"bridge_secret": secret})
}
