// Package fronts implements FrontsResolver: given a Simply Plural client
// and a user's privacy configuration, compute the canonical list of
// currently-fronting identities. The algorithm itself is pure with respect
// to its inputs (spec §4.3) — all I/O is isolated to the Fetch* calls on
// plurality.Client.
package fronts

import (
	"context"
	"fmt"

	"sp2any/src/plurality"
	"sp2any/src/users"
)

const vrchatStatusNameField = "VRChat Status Name"

// globalSP2AnyFriendUserID is the well-known SP user id SP2Any uses to
// request friendship for the ViaFriend privacy mode.
const globalSP2AnyFriendUserID = "sp2any"

// Options carries the privacy/visibility configuration FrontsResolver
// needs, resolved from config.ForUpdater.
type Options struct {
	ShowMembersNonArchived            bool
	ShowMembersArchived               bool
	RespectFrontNotificationsDisabled bool
	ShowCustomFronts                  bool
	PrivacyFineGrained                users.PrivacyFineGrained
	PrivacyFineGrainedBuckets         map[string]struct{}
}

// Resolve computes the canonical Fronter list (spec §4.3, steps 1-9).
func Resolve(ctx context.Context, client *plurality.Client, opts Options) ([]plurality.Fronter, error) {
	entries, err := client.FetchFronts(ctx)
	if err != nil {
		return nil, fmt.Errorf("fronts: fetch fronts: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	systemID := entries[0].SystemID

	vrchatFieldID, err := findVRChatStatusNameFieldID(ctx, client, systemID)
	if err != nil {
		return nil, err
	}

	members, err := client.FetchMembers(ctx, systemID)
	if err != nil {
		return nil, fmt.Errorf("fronts: fetch members: %w", err)
	}

	allowSet, err := resolveAllowSet(ctx, client, systemID, opts)
	if err != nil {
		return nil, err
	}

	candidates := make(map[string]plurality.Fronter)
	for _, m := range members {
		if !passesMemberPrivacy(m, opts) {
			continue
		}
		if !passesFineGrained(m.PrivacyBuckets, opts.PrivacyFineGrained, allowSet) {
			continue
		}
		f := plurality.Fronter{
			FronterID:      m.ID,
			Name:           m.Name,
			AvatarURL:      m.AvatarURL,
			PrivacyBuckets: m.PrivacyBuckets,
		}
		if vrchatFieldID != "" {
			if v, ok := m.Info[vrchatFieldID]; ok && v != "" {
				vv := v
				f.VRChatStatusName = &vv
			}
		}
		candidates[m.ID] = f
	}

	if opts.ShowCustomFronts {
		customFronts, err := client.FetchCustomFronts(ctx, systemID)
		if err != nil {
			return nil, fmt.Errorf("fronts: fetch custom fronts: %w", err)
		}
		for _, cf := range customFronts {
			if !passesFineGrained(cf.PrivacyBuckets, opts.PrivacyFineGrained, allowSet) {
				continue
			}
			candidates[cf.ID] = plurality.Fronter{
				FronterID:      cf.ID,
				Name:           cf.Name,
				AvatarURL:      cf.AvatarURL,
				PrivacyBuckets: cf.PrivacyBuckets,
			}
		}
	}

	var out []plurality.Fronter
	for _, entry := range entries {
		if !entry.Live {
			continue
		}
		c, ok := candidates[entry.FronterID]
		if !ok {
			continue
		}
		st := entry.StartTime
		c.StartTime = &st
		out = append(out, c)
	}
	return out, nil
}

func findVRChatStatusNameFieldID(ctx context.Context, client *plurality.Client, systemID string) (string, error) {
	fields, err := client.FetchCustomFields(ctx, systemID)
	if err != nil {
		return "", fmt.Errorf("fronts: fetch custom fields: %w", err)
	}
	for _, f := range fields {
		if f.Name == vrchatStatusNameField {
			return f.ID, nil
		}
	}
	return "", nil
}

// passesMemberPrivacy implements spec §4.3's member privacy rules (step 4).
func passesMemberPrivacy(m plurality.Member, opts Options) bool {
	if opts.RespectFrontNotificationsDisabled && m.PreventsFrontNotifs {
		return false
	}
	if m.Archived {
		return opts.ShowMembersArchived
	}
	return opts.ShowMembersNonArchived
}

func resolveAllowSet(ctx context.Context, client *plurality.Client, systemID string, opts Options) (map[string]struct{}, error) {
	switch opts.PrivacyFineGrained {
	case users.ViaFriend:
		friend, err := client.FetchFriend(ctx, systemID, globalSP2AnyFriendUserID)
		if err != nil {
			return nil, fmt.Errorf("fronts: fetch friend: %w", err)
		}
		set := make(map[string]struct{}, len(friend.AssignedPrivacyBuckets))
		for _, b := range friend.AssignedPrivacyBuckets {
			set[b] = struct{}{}
		}
		return set, nil
	case users.ViaPrivacyBuckets:
		return opts.PrivacyFineGrainedBuckets, nil
	default:
		return nil, nil
	}
}

// passesFineGrained implements step 8: NoFineGrained passes everything;
// otherwise the candidate's privacy buckets must intersect the allow-set.
func passesFineGrained(buckets []string, mode users.PrivacyFineGrained, allowSet map[string]struct{}) bool {
	if mode == users.NoFineGrained {
		return true
	}
	for _, b := range buckets {
		if _, ok := allowSet[b]; ok {
			return true
		}
	}
	return false
}
