// Package plurality models Simply Plural's ("SP") domain objects and
// implements the REST client both UpstreamSubscriber and FrontsResolver
// call against, plus the Fronter/PresenceProjection record types shared
// across destination updaters.
package plurality

import "time"

// FrontEntry links a fronter id to a start timestamp for the current
// fronting period. "Live" distinguishes an active (still-fronting) entry
// from a historical one.
type FrontEntry struct {
	ID        string
	SystemID  string
	FronterID string
	Custom    bool
	StartTime time.Time
	Live      bool
}

// Member is a persistent identity in the system.
type Member struct {
	ID                  string
	Name                string
	AvatarURL           string
	Archived            bool
	PreventsFrontNotifs bool
	PrivacyBuckets      []string
	Info                map[string]string // custom field id -> value
}

// CustomField is a system-defined field definition, used here only to
// locate the "VRChat Status Name" field's id.
type CustomField struct {
	ID   string
	Name string
}

// CustomFront is a non-persistent fronter concept (spec glossary).
type CustomFront struct {
	ID             string
	Name           string
	AvatarURL      string
	PrivacyBuckets []string
}

// Friend is an SP friend record, used by the ViaFriend privacy mode to read
// the allow-set SP2Any itself has been granted.
type Friend struct {
	ID                     string
	AssignedPrivacyBuckets []string
}

// FriendRequest is one pending incoming friend request, keyed by the
// requesting user's SP user id.
type FriendRequest struct {
	FromUserID string
}

// Fronter is the canonical record of one identity currently fronting,
// spec §3.
type Fronter struct {
	FronterID          string
	Name               string
	AvatarURL          string
	VRChatStatusName   *string
	PluralKitID        *string
	PluralKitName      *string
	PluralKitDisplayName *string
	PrivacyBuckets     []string
	StartTime          *time.Time
}

// DisplayName resolves the name a destination updater should show: the
// PluralKit name/display name when usePluralKitName is set and present,
// else the SP-sourced name.
func (f Fronter) DisplayName(usePluralKitName bool) string {
	if usePluralKitName {
		if f.PluralKitDisplayName != nil && *f.PluralKitDisplayName != "" {
			return *f.PluralKitDisplayName
		}
		if f.PluralKitName != nil && *f.PluralKitName != "" {
			return *f.PluralKitName
		}
	}
	return f.Name
}
