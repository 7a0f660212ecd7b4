package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"sp2any/src/config"
	"sp2any/src/fleet"
	"sp2any/src/secretstore"
	"sp2any/src/users"
)

// ConfigHandler serves the authenticated caller's own per-user config.
type ConfigHandler struct {
	Store *secretstore.Store
	Fleet *fleet.Manager
}

// configRequest mirrors config.RawConfig's JSON-settable surface; secret
// fields are plain strings here since they only exist decrypted for the
// duration of this one request.
type configRequest struct {
	WaitSeconds                int32    `json:"wait_seconds"`
	SystemName                 string   `json:"system_name"`
	StatusPrefix                string   `json:"status_prefix"`
	StatusNoFronts              string   `json:"status_no_fronts"`
	StatusTruncateNamesTo       int32    `json:"status_truncate_names_to"`
	EnableDiscord               bool     `json:"enable_discord"`
	EnableDiscordStatusMessage  bool     `json:"enable_discord_status_message"`
	EnableVRChat                bool     `json:"enable_vrchat"`
	EnableToPluralKit           bool     `json:"enable_to_pluralkit"`
	ShowMembersNonArchived      bool     `json:"show_members_non_archived"`
	ShowMembersArchived         bool     `json:"show_members_archived"`
	RespectFrontNotifDisabled   bool     `json:"respect_front_notifications_disabled"`
	ShowCustomFronts            bool     `json:"show_custom_fronts"`
	UsePluralKitName            bool     `json:"use_pluralkit_name"`
	PrivacyFineGrained          int32    `json:"privacy_fine_grained"`
	PrivacyBuckets              []string `json:"privacy_buckets"`
	SimplyPluralToken           string   `json:"simply_plural_token"`
	DiscordStatusMessageToken   string   `json:"discord_status_message_token"`
	DiscordUserID               string   `json:"discord_user_id"`
	VRChatUsername              string   `json:"vrchat_username"`
	VRChatPassword              string   `json:"vrchat_password"`
	PluralKitToken               string   `json:"pluralkit_token"`
}

// Get handles GET /v1/users/me/config: the plain (non-secret) columns only,
// mirroring SecretStore.GetUser's refusal to ever select ciphertext back
// out for display.
func (h ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	entries, err := h.Store.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "no such user")
		return
	}
	writeSuccess(w, http.StatusOK, entries)
}

// Put handles PUT /v1/users/me/config: validate then persist the new
// config, and restart the caller's pipeline so the change takes effect
// immediately (spec §9, "a config save always implies a pipeline restart").
func (h ConfigHandler) Put(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed config body")
		return
	}

	existing, err := h.Store.GetUserSecrets(r.Context(), userID)
	if err != nil && !errors.Is(err, secretstore.ErrNoSuchUser) {
		writeError(w, http.StatusInternalServerError, "internal_error", "could not load existing config")
		return
	}
	raw := config.FromEntries(existing)
	applyRequest(&raw, req)

	valid, err := config.NewValidConfig(raw)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_config", err.Error())
		return
	}

	if err := h.Store.SetUserConfigSecrets(r.Context(), userID, valid.Raw().ToEntries()); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "could not save config")
		return
	}

	h.Fleet.RestartUpdater(r.Context(), userID, config.NewForUpdater(userID, valid))
	writeSuccess(w, http.StatusOK, map[string]bool{"saved": true})
}

func applyRequest(raw *config.RawConfig, req configRequest) {
	raw.WaitSeconds = req.WaitSeconds
	raw.SystemName = req.SystemName
	raw.StatusPrefix = req.StatusPrefix
	raw.StatusNoFronts = req.StatusNoFronts
	raw.StatusTruncateNamesTo = req.StatusTruncateNamesTo
	raw.EnableDiscord = req.EnableDiscord
	raw.EnableDiscordStatusMessage = req.EnableDiscordStatusMessage
	raw.EnableVRChat = req.EnableVRChat
	raw.EnableToPluralKit = req.EnableToPluralKit
	raw.ShowMembersNonArchived = req.ShowMembersNonArchived
	raw.ShowMembersArchived = req.ShowMembersArchived
	raw.RespectFrontNotificationsDisabled = req.RespectFrontNotifDisabled
	raw.ShowCustomFronts = req.ShowCustomFronts
	if req.UsePluralKitName {
		raw.UsePluralKitName = users.PreferPluralKitName
	} else {
		raw.UsePluralKitName = users.PreferSimplyPluralName
	}
	raw.PrivacyFineGrained = users.PrivacyFineGrained(req.PrivacyFineGrained)
	raw.PrivacyBuckets = req.PrivacyBuckets
	raw.SimplyPluralToken.Secret = req.SimplyPluralToken
	raw.DiscordStatusMessageToken.Secret = req.DiscordStatusMessageToken
	raw.DiscordUserID.Secret = req.DiscordUserID
	raw.VRChatUsername.Secret = req.VRChatUsername
	raw.VRChatPassword.Secret = req.VRChatPassword
	raw.PluralKitToken.Secret = req.PluralKitToken
}
