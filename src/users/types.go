// Package users holds the small, shared identity types referenced across
// the rest of the core: UserId is the key for every per-user map, metrics
// label, and database row.
package users

import "github.com/google/uuid"

// UserId is the opaque unique handle for a tenant. It is used as the key in
// every per-user map and as the partitioning label in metrics.
type UserId struct {
	Inner uuid.UUID
}

// String renders the id for logging and metrics labels.
func (u UserId) String() string {
	return u.Inner.String()
}

// NewUserId generates a fresh random id, used when creating a user.
func NewUserId() UserId {
	return UserId{Inner: uuid.New()}
}

// ParseUserId parses a UserId from its string form (e.g. a URL path
// segment or database column).
func ParseUserId(s string) (UserId, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UserId{}, err
	}
	return UserId{Inner: id}, nil
}

// Email is a validated-at-the-boundary user email address. Validation
// itself (format checks, uniqueness) is the out-of-scope registration
// collaborator's job; this type only carries the value through the core.
type Email struct {
	Inner string
}

// PasswordHashString carries an already-hashed password. Hashing itself is
// the out-of-scope registration collaborator's job.
type PasswordHashString struct {
	Inner string
}

// PrivacyFineGrained selects how FrontsResolver applies fine-grained
// privacy filtering (spec §4.3 step 8).
type PrivacyFineGrained int

const (
	// NoFineGrained passes every candidate through unfiltered.
	NoFineGrained PrivacyFineGrained = iota
	// ViaFriend uses the allow-set from the SP friend record for the
	// globally-known SP2Any friend user id.
	ViaFriend
	// ViaPrivacyBuckets uses the user's own configured allow-set.
	ViaPrivacyBuckets
)

// UsePluralKitName selects whether the PluralKit updater and the status
// formatter prefer a fronter's PluralKit display name over its SP name.
type UsePluralKitName int

const (
	// PreferSimplyPluralName always uses the SP-sourced name.
	PreferSimplyPluralName UsePluralKitName = iota
	// PreferPluralKitName uses the PluralKit name/display name when present.
	PreferPluralKitName
)
