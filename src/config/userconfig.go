// Package config loads process-wide environment configuration and
// implements the per-user config's phantom-validity discipline: a RawConfig
// (defaults applied, not yet checked) and a ValidConfig (invariants
// checked), with NewValidConfig as the only constructor for the latter.
package config

import (
	"errors"
	"time"

	"sp2any/src/secretstore"
	"sp2any/src/users"
)

// RawConfig is per-user settings with defaults already applied but cross-
// field invariants not yet checked. It must never be persisted directly;
// only a ValidConfig derived from it may be written to the SecretStore.
type RawConfig struct {
	WaitSeconds           int32
	SystemName            string
	StatusPrefix          string
	StatusNoFronts        string
	StatusTruncateNamesTo int32

	EnableDiscord              bool
	EnableDiscordStatusMessage bool
	EnableVRChat               bool
	EnableToPluralKit          bool

	ShowMembersNonArchived            bool
	ShowMembersArchived               bool
	RespectFrontNotificationsDisabled bool
	ShowCustomFronts                  bool
	UsePluralKitName                  users.UsePluralKitName
	PrivacyFineGrained                users.PrivacyFineGrained
	PrivacyBuckets                    []string

	SimplyPluralToken        secretstore.Decrypted
	DiscordStatusMessageToken secretstore.Decrypted
	DiscordUserID            secretstore.Decrypted
	DiscordOAuthAccessToken  secretstore.Decrypted
	DiscordOAuthRefreshToken secretstore.Decrypted
	VRChatUsername           secretstore.Decrypted
	VRChatPassword           secretstore.Decrypted
	VRChatCookie             secretstore.Decrypted
	PluralKitToken           secretstore.Decrypted
}

// Defaults mirrors the source's UserConfigDbEntries::default(): prefix
// "F:", no-fronts text "none?", truncate-to 3, wait 60s, every destination
// disabled.
func Defaults() RawConfig {
	return RawConfig{
		WaitSeconds:           60,
		StatusPrefix:          "F:",
		StatusNoFronts:        "none?",
		StatusTruncateNamesTo: 3,
	}
}

// FromEntries converts persisted entries into a RawConfig, substituting
// Defaults() for any nil optional column ("None: use default value").
func FromEntries(e secretstore.Entries[secretstore.Decrypted]) RawConfig {
	d := Defaults()
	r := d
	if e.WaitSeconds != nil {
		r.WaitSeconds = *e.WaitSeconds
	}
	if e.SystemName != nil {
		r.SystemName = *e.SystemName
	}
	if e.StatusPrefix != nil {
		r.StatusPrefix = *e.StatusPrefix
	}
	if e.StatusNoFronts != nil {
		r.StatusNoFronts = *e.StatusNoFronts
	}
	if e.StatusTruncateNamesTo != nil {
		r.StatusTruncateNamesTo = *e.StatusTruncateNamesTo
	}
	if e.EnableDiscord != nil {
		r.EnableDiscord = *e.EnableDiscord
	}
	if e.EnableDiscordStatusMsg != nil {
		r.EnableDiscordStatusMessage = *e.EnableDiscordStatusMsg
	}
	if e.EnableVRChat != nil {
		r.EnableVRChat = *e.EnableVRChat
	}
	if e.EnableToPluralKit != nil {
		r.EnableToPluralKit = *e.EnableToPluralKit
	}
	if e.ShowMembersNonArchived != nil {
		r.ShowMembersNonArchived = *e.ShowMembersNonArchived
	}
	if e.ShowMembersArchived != nil {
		r.ShowMembersArchived = *e.ShowMembersArchived
	}
	if e.RespectFrontNotifDisabled != nil {
		r.RespectFrontNotificationsDisabled = *e.RespectFrontNotifDisabled
	}
	if e.ShowCustomFronts != nil {
		r.ShowCustomFronts = *e.ShowCustomFronts
	}
	if e.UsePluralKitName != nil && *e.UsePluralKitName {
		r.UsePluralKitName = users.PreferPluralKitName
	}
	if e.PrivacyFineGrained != nil {
		r.PrivacyFineGrained = users.PrivacyFineGrained(*e.PrivacyFineGrained)
	}
	r.PrivacyBuckets = e.PrivacyBuckets
	r.SystemName = orString(e.SystemName, r.SystemName)

	r.SimplyPluralToken = e.SimplyPluralToken
	r.DiscordStatusMessageToken = e.DiscordStatusMsgToken
	r.DiscordUserID = e.DiscordUserID
	r.DiscordOAuthAccessToken = e.DiscordOAuthAccessToken
	r.DiscordOAuthRefreshToken = e.DiscordOAuthRefreshToken
	r.VRChatUsername = e.VRChatUsername
	r.VRChatPassword = e.VRChatPassword
	r.VRChatCookie = e.VRChatCookie
	r.PluralKitToken = e.PluralKitToken
	return r
}

func orString(p *string, fallback string) string {
	if p != nil {
		return *p
	}
	return fallback
}

// ToEntries converts a RawConfig back into the column shape SecretStore
// persists. Only ever called with the RawConfig backing an already-produced
// ValidConfig (see NewValidConfig) — never before validation.
func (r RawConfig) ToEntries() secretstore.Entries[secretstore.Decrypted] {
	useFKName := r.UsePluralKitName == users.PreferPluralKitName
	fineGrained := int32(r.PrivacyFineGrained)
	return secretstore.Entries[secretstore.Decrypted]{
		WaitSeconds:               &r.WaitSeconds,
		SystemName:                &r.SystemName,
		StatusPrefix:              &r.StatusPrefix,
		StatusNoFronts:            &r.StatusNoFronts,
		StatusTruncateNamesTo:     &r.StatusTruncateNamesTo,
		EnableDiscord:             &r.EnableDiscord,
		EnableDiscordStatusMsg:    &r.EnableDiscordStatusMessage,
		EnableVRChat:              &r.EnableVRChat,
		EnableToPluralKit:         &r.EnableToPluralKit,
		ShowMembersNonArchived:    &r.ShowMembersNonArchived,
		ShowMembersArchived:       &r.ShowMembersArchived,
		RespectFrontNotifDisabled: &r.RespectFrontNotificationsDisabled,
		ShowCustomFronts:          &r.ShowCustomFronts,
		UsePluralKitName:          &useFKName,
		PrivacyFineGrained:        &fineGrained,
		PrivacyBuckets:            r.PrivacyBuckets,
		SimplyPluralToken:         r.SimplyPluralToken,
		DiscordStatusMsgToken:     r.DiscordStatusMessageToken,
		DiscordUserID:             r.DiscordUserID,
		DiscordOAuthAccessToken:   r.DiscordOAuthAccessToken,
		DiscordOAuthRefreshToken:  r.DiscordOAuthRefreshToken,
		VRChatUsername:            r.VRChatUsername,
		VRChatPassword:            r.VRChatPassword,
		VRChatCookie:              r.VRChatCookie,
		PluralKitToken:             r.PluralKitToken,
	}
}

// ValidConfig wraps a RawConfig whose invariants have been checked. The
// only way to produce one is NewValidConfig; its field is unexported so no
// other package can fabricate a "valid" config without going through
// validation (spec §9, "Phantom validity of configs").
type ValidConfig struct {
	raw RawConfig
}

// Raw returns the checked RawConfig.
func (v ValidConfig) Raw() RawConfig { return v.raw }

// ErrInvalidConfig wraps every invariant violation from NewValidConfig.
var ErrInvalidConfig = errors.New("config: invariant violated")

// NewValidConfig checks every cross-field invariant from spec §3:
//   - for every enable_X=true flag, the corresponding credential secrets
//     are non-empty;
//   - status_truncate_names_to >= 0;
//   - wait_seconds >= 1.
//
// It is the single checked constructor for ValidConfig.
func NewValidConfig(raw RawConfig) (ValidConfig, error) {
	if raw.StatusTruncateNamesTo < 0 {
		return ValidConfig{}, errors.Join(ErrInvalidConfig, errors.New("status_truncate_names_to must be >= 0"))
	}
	if raw.WaitSeconds < 1 {
		return ValidConfig{}, errors.Join(ErrInvalidConfig, errors.New("wait_seconds must be >= 1"))
	}
	if raw.EnableDiscordStatusMessage && raw.DiscordStatusMessageToken.Secret == "" {
		return ValidConfig{}, errors.Join(ErrInvalidConfig, errors.New("enable_discord_status_message requires discord_status_message_token"))
	}
	if raw.EnableDiscord && raw.DiscordUserID.Secret == "" {
		return ValidConfig{}, errors.Join(ErrInvalidConfig, errors.New("enable_discord requires discord_user_id"))
	}
	if raw.EnableVRChat && (raw.VRChatUsername.Secret == "" || raw.VRChatPassword.Secret == "") {
		return ValidConfig{}, errors.Join(ErrInvalidConfig, errors.New("enable_vrchat requires vrchat_username and vrchat_password"))
	}
	if raw.EnableToPluralKit && raw.PluralKitToken.Secret == "" {
		return ValidConfig{}, errors.Join(ErrInvalidConfig, errors.New("enable_to_pluralkit requires pluralkit_token"))
	}
	if raw.SimplyPluralToken.Secret == "" {
		return ValidConfig{}, errors.Join(ErrInvalidConfig, errors.New("simply_plural_token is always required"))
	}
	return ValidConfig{raw: raw}, nil
}

// ForUpdater is the fully-resolved, per-pipeline view of a user's config:
// concrete types instead of optionals, ready for UpstreamSubscriber,
// FrontsResolver and the destination updaters to consume directly. Never
// convert this back into persisted entries — it may carry decrypted
// secrets beyond the lifetime SecretStore allows.
type ForUpdater struct {
	UserID users.UserId

	SimplyPluralBaseURL string
	DiscordBaseURL      string
	PluralKitBaseURL    string
	VRChatBaseURL       string

	WaitSeconds time.Duration

	SystemName            string
	StatusPrefix          string
	StatusNoFronts        string
	StatusTruncateNamesTo int

	EnableDiscord              bool
	EnableDiscordStatusMessage bool
	EnableVRChat               bool
	EnableToPluralKit          bool

	ShowMembersNonArchived            bool
	ShowMembersArchived               bool
	RespectFrontNotificationsDisabled bool
	ShowCustomFronts                  bool
	UsePluralKitName                  users.UsePluralKitName
	PrivacyFineGrained                users.PrivacyFineGrained
	PrivacyBuckets                    map[string]struct{}

	SimplyPluralToken         string
	DiscordStatusMessageToken string
	DiscordUserID             string
	VRChatUsername            string
	VRChatPassword            string
	VRChatCookie              string
	PluralKitToken            string
}

// NewForUpdater resolves a ValidConfig into the concrete shape the pipeline
// and its updaters consume.
func NewForUpdater(userID users.UserId, valid ValidConfig) ForUpdater {
	r := valid.raw
	buckets := make(map[string]struct{}, len(r.PrivacyBuckets))
	for _, b := range r.PrivacyBuckets {
		buckets[b] = struct{}{}
	}
	discordBase := ""
	if r.EnableDiscordStatusMessage || r.EnableDiscord {
		discordBase = "https://discord.com"
	}
	return ForUpdater{
		UserID:                            userID,
		SimplyPluralBaseURL:               "https://api.apparyllis.com/v1",
		DiscordBaseURL:                    discordBase,
		PluralKitBaseURL:                  "https://api.pluralkit.me/v2",
		VRChatBaseURL:                     "https://api.vrchat.cloud/api/1",
		WaitSeconds:                       time.Duration(r.WaitSeconds) * time.Second,
		SystemName:                        r.SystemName,
		StatusPrefix:                      r.StatusPrefix,
		StatusNoFronts:                    r.StatusNoFronts,
		StatusTruncateNamesTo:             int(r.StatusTruncateNamesTo),
		EnableDiscord:                     r.EnableDiscord,
		EnableDiscordStatusMessage:        r.EnableDiscordStatusMessage,
		EnableVRChat:                      r.EnableVRChat,
		EnableToPluralKit:                 r.EnableToPluralKit,
		ShowMembersNonArchived:            r.ShowMembersNonArchived,
		ShowMembersArchived:               r.ShowMembersArchived,
		RespectFrontNotificationsDisabled: r.RespectFrontNotificationsDisabled,
		ShowCustomFronts:                  r.ShowCustomFronts,
		UsePluralKitName:                  r.UsePluralKitName,
		PrivacyFineGrained:                r.PrivacyFineGrained,
		PrivacyBuckets:                    buckets,
		SimplyPluralToken:                 r.SimplyPluralToken.Secret,
		DiscordStatusMessageToken:         r.DiscordStatusMessageToken.Secret,
		DiscordUserID:                     r.DiscordUserID.Secret,
		VRChatUsername:                   r.VRChatUsername.Secret,
		VRChatPassword:                   r.VRChatPassword.Secret,
		VRChatCookie:                     r.VRChatCookie.Secret,
		PluralKitToken:                   r.PluralKitToken.Secret,
	}
}
