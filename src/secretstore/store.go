package secretstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"sp2any/src/users"
)

// ApplicationUserSecrets is the process-wide secret that, combined with a
// user id, derives that user's symmetric encryption key. It must never be
// logged.
type ApplicationUserSecrets struct {
	Inner string
}

// Store persists per-user secret-bearing configuration in Postgres, using
// the pgcrypto extension's pgp_sym_encrypt/pgp_sym_decrypt so plaintext
// secrets never leave the database process unencrypted at rest. It holds no
// per-user state in memory beyond the lifetime of one call.
type Store struct {
	db            *sql.DB
	appUserSecret ApplicationUserSecrets
}

// New wraps an existing *sql.DB (driver "postgres") as a Store.
func New(db *sql.DB, appUserSecret ApplicationUserSecrets) *Store {
	return &Store{db: db, appUserSecret: appUserSecret}
}

// ErrNoSuchUser is returned when a lookup finds no row for the user id.
var ErrNoSuchUser = errors.New("secretstore: no such user")

// DecryptionKey computes hex(SHA-256(user_id || application_user_secret)),
// the deterministic per-user symmetric key. Deterministic in (user_id,
// application secret) as required by spec §5/§6; never logged.
func DecryptionKey(userID users.UserId, appUserSecret ApplicationUserSecrets) string {
	h := sha256.New()
	h.Write([]byte(userID.String()))
	h.Write([]byte(appUserSecret.Inner))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Entries is the plain-config + secret-field shape persisted in the `users`
// table, generic over whether the secrets are Encrypted (never read) or
// Decrypted (plaintext, only ever materialized for the duration of one
// updater cycle).
type Entries[S any] struct {
	WaitSeconds              *int32
	SystemName               *string
	StatusPrefix             *string
	StatusNoFronts           *string
	StatusTruncateNamesTo    *int32
	EnableDiscord            *bool
	EnableDiscordStatusMsg   *bool
	EnableVRChat             *bool
	EnableToPluralKit        *bool

	ShowMembersNonArchived     *bool
	ShowMembersArchived        *bool
	RespectFrontNotifDisabled  *bool
	ShowCustomFronts           *bool
	UsePluralKitName           *bool
	PrivacyFineGrained         *int32
	PrivacyBuckets             []string

	SimplyPluralToken        S
	DiscordStatusMsgToken    S
	DiscordUserID            S
	DiscordOAuthAccessToken  S
	DiscordOAuthRefreshToken S
	VRChatUsername           S
	VRChatPassword           S
	VRChatCookie             S
	PluralKitToken           S
}

// CreateUser inserts a new user row with the given email/password hash.
func (s *Store) CreateUser(ctx context.Context, email users.Email, passwordHash users.PasswordHashString) (users.UserId, error) {
	id := users.NewUserId()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3)`,
		id.Inner, email.Inner, passwordHash.Inner)
	if err != nil {
		return users.UserId{}, fmt.Errorf("secretstore: create user: %w", err)
	}
	return id, nil
}

// GetUserByEmail resolves a login attempt's email to a user id and stored
// password hash.
func (s *Store) GetUserByEmail(ctx context.Context, email users.Email) (users.UserId, users.PasswordHashString, error) {
	var id users.UserId
	var hash users.PasswordHashString
	row := s.db.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email = $1`, email.Inner)
	if err := row.Scan(&id.Inner, &hash.Inner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return users.UserId{}, users.PasswordHashString{}, ErrNoSuchUser
		}
		return users.UserId{}, users.PasswordHashString{}, fmt.Errorf("secretstore: get user by email: %w", err)
	}
	return id, hash, nil
}

// GetUser reads the plain config columns only; secret columns are returned
// as opaque Encrypted markers (their ciphertext is never selected).
func (s *Store) GetUser(ctx context.Context, userID users.UserId) (Entries[Encrypted], error) {
	var e Entries[Encrypted]
	var buckets pq.StringArray
	row := s.db.QueryRowContext(ctx, `
		SELECT wait_seconds, system_name, status_prefix, status_no_fronts,
		       status_truncate_names_to, enable_discord,
		       enable_discord_status_message, enable_vrchat, enable_to_pluralkit,
		       show_members_non_archived, show_members_archived,
		       respect_front_notifications_disabled, show_custom_fronts,
		       use_pluralkit_name, privacy_fine_grained, privacy_buckets
		FROM users WHERE id = $1`, userID.Inner)
	if err := row.Scan(&e.WaitSeconds, &e.SystemName, &e.StatusPrefix, &e.StatusNoFronts,
		&e.StatusTruncateNamesTo, &e.EnableDiscord, &e.EnableDiscordStatusMsg,
		&e.EnableVRChat, &e.EnableToPluralKit,
		&e.ShowMembersNonArchived, &e.ShowMembersArchived,
		&e.RespectFrontNotifDisabled, &e.ShowCustomFronts,
		&e.UsePluralKitName, &e.PrivacyFineGrained, &buckets); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, ErrNoSuchUser
		}
		return e, fmt.Errorf("secretstore: get user: %w", err)
	}
	e.PrivacyBuckets = []string(buckets)
	return e, nil
}

// SetUserConfigSecrets persists plain config columns and pgp_sym_encrypts
// every secret column with the user's derived key.
func (s *Store) SetUserConfigSecrets(ctx context.Context, userID users.UserId, cfg Entries[Decrypted]) error {
	key := DecryptionKey(userID, s.appUserSecret)
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			wait_seconds = $2,
			system_name = $3,
			status_prefix = $4,
			status_no_fronts = $5,
			status_truncate_names_to = $6,
			enable_discord = $7,
			enable_discord_status_message = $8,
			enable_vrchat = $9,
			enable_to_pluralkit = $10,
			show_members_non_archived = $21,
			show_members_archived = $22,
			respect_front_notifications_disabled = $23,
			show_custom_fronts = $24,
			use_pluralkit_name = $25,
			privacy_fine_grained = $26,
			privacy_buckets = $27,
			enc__simply_plural_token = pgp_sym_encrypt($12, $11),
			enc__discord_status_message_token = pgp_sym_encrypt($13, $11),
			enc__discord_user_id = pgp_sym_encrypt($14, $11),
			enc__discord_oauth_access_token = pgp_sym_encrypt($15, $11),
			enc__discord_oauth_refresh_token = pgp_sym_encrypt($16, $11),
			enc__vrchat_username = pgp_sym_encrypt($17, $11),
			enc__vrchat_password = pgp_sym_encrypt($18, $11),
			enc__vrchat_cookie = pgp_sym_encrypt($19, $11),
			enc__pluralkit_token = pgp_sym_encrypt($20, $11)
		WHERE id = $1`,
		userID.Inner,
		cfg.WaitSeconds, cfg.SystemName, cfg.StatusPrefix, cfg.StatusNoFronts,
		cfg.StatusTruncateNamesTo, cfg.EnableDiscord, cfg.EnableDiscordStatusMsg,
		cfg.EnableVRChat, cfg.EnableToPluralKit,
		key,
		cfg.SimplyPluralToken.Secret,
		cfg.DiscordStatusMsgToken.Secret,
		cfg.DiscordUserID.Secret,
		cfg.DiscordOAuthAccessToken.Secret,
		cfg.DiscordOAuthRefreshToken.Secret,
		cfg.VRChatUsername.Secret,
		cfg.VRChatPassword.Secret,
		cfg.VRChatCookie.Secret,
		cfg.PluralKitToken.Secret,
		cfg.ShowMembersNonArchived, cfg.ShowMembersArchived,
		cfg.RespectFrontNotifDisabled, cfg.ShowCustomFronts,
		cfg.UsePluralKitName, cfg.PrivacyFineGrained, pq.StringArray(cfg.PrivacyBuckets),
	)
	if err != nil {
		return fmt.Errorf("secretstore: set user config secrets: %w", err)
	}
	return nil
}

// GetUserSecrets reads the full config with secrets pgp_sym_decrypted
// in-database using the user's derived key; the plaintext only exists for
// the lifetime of this one call's result.
func (s *Store) GetUserSecrets(ctx context.Context, userID users.UserId) (Entries[Decrypted], error) {
	key := DecryptionKey(userID, s.appUserSecret)
	var e Entries[Decrypted]
	row := s.db.QueryRowContext(ctx, `
		SELECT wait_seconds, system_name, status_prefix, status_no_fronts,
		       status_truncate_names_to, enable_discord,
		       enable_discord_status_message, enable_vrchat, enable_to_pluralkit,
		       pgp_sym_decrypt(enc__simply_plural_token, $2),
		       pgp_sym_decrypt(enc__discord_status_message_token, $2),
		       pgp_sym_decrypt(enc__discord_user_id, $2),
		       pgp_sym_decrypt(enc__discord_oauth_access_token, $2),
		       pgp_sym_decrypt(enc__discord_oauth_refresh_token, $2),
		       pgp_sym_decrypt(enc__vrchat_username, $2),
		       pgp_sym_decrypt(enc__vrchat_password, $2),
		       pgp_sym_decrypt(enc__vrchat_cookie, $2),
		       pgp_sym_decrypt(enc__pluralkit_token, $2),
		       show_members_non_archived, show_members_archived,
		       respect_front_notifications_disabled, show_custom_fronts,
		       use_pluralkit_name, privacy_fine_grained, privacy_buckets
		FROM users WHERE id = $1`, userID.Inner, key)
	var buckets pq.StringArray
	if err := row.Scan(&e.WaitSeconds, &e.SystemName, &e.StatusPrefix, &e.StatusNoFronts,
		&e.StatusTruncateNamesTo, &e.EnableDiscord, &e.EnableDiscordStatusMsg,
		&e.EnableVRChat, &e.EnableToPluralKit,
		&e.SimplyPluralToken.Secret,
		&e.DiscordStatusMsgToken.Secret,
		&e.DiscordUserID.Secret,
		&e.DiscordOAuthAccessToken.Secret,
		&e.DiscordOAuthRefreshToken.Secret,
		&e.VRChatUsername.Secret,
		&e.VRChatPassword.Secret,
		&e.VRChatCookie.Secret,
		&e.PluralKitToken.Secret,
		&e.ShowMembersNonArchived, &e.ShowMembersArchived,
		&e.RespectFrontNotifDisabled, &e.ShowCustomFronts,
		&e.UsePluralKitName, &e.PrivacyFineGrained, &buckets,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, ErrNoSuchUser
		}
		return e, fmt.Errorf("secretstore: get user secrets: %w", err)
	}
	e.PrivacyBuckets = []string(buckets)
	return e, nil
}

// UpdateVRChatCookie persists a freshly issued VRChat cookie for userID
// without touching any other column, mirroring the source's
// modify_user_secrets partial-update helper. Called after every VRChat
// authentication so a later updater restart reuses the newest cookie
// instead of re-authenticating with username/password.
func (s *Store) UpdateVRChatCookie(ctx context.Context, userID users.UserId, cookie string) error {
	key := DecryptionKey(userID, s.appUserSecret)
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET enc__vrchat_cookie = pgp_sym_encrypt($2, $3) WHERE id = $1`,
		userID.Inner, cookie, key)
	if err != nil {
		return fmt.Errorf("secretstore: update vrchat cookie: %w", err)
	}
	return nil
}

// ErrPairingCodeNotFound is returned when no user matches a bridge pairing
// attempt (spec §4.5.1).
var ErrPairingCodeNotFound = errors.New("secretstore: no matching pairing code")

// SetBridgePairingCode issues a fresh 5-minute pairing code for userID,
// overwriting any prior one (spec §4.5.1 step 1).
func (s *Store) SetBridgePairingCode(ctx context.Context, userID users.UserId, code string, expiresAt time.Time) error {
	key := DecryptionKey(userID, s.appUserSecret)
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			enc__bridge_pairing_code = pgp_sym_encrypt($2, $4),
			bridge_pairing_code_expires_at = $3
		WHERE id = $1`,
		userID.Inner, code, expiresAt, key)
	if err != nil {
		return fmt.Errorf("secretstore: set bridge pairing code: %w", err)
	}
	return nil
}

// FindUserByDiscordIDAndPairingCode scans every user (mirroring the
// source's linear find_user_by_discord_id_and_pairing_code) for one whose
// decrypted discord_user_id and bridge_pairing_code match and whose code
// has not expired.
func (s *Store) FindUserByDiscordIDAndPairingCode(ctx context.Context, discordUserID, pairingCode string) (users.UserId, error) {
	allUsers, err := s.GetAllUsers(ctx)
	if err != nil {
		return users.UserId{}, err
	}

	for _, id := range allUsers {
		key := DecryptionKey(id, s.appUserSecret)
		var gotDiscordID, gotCode sql.NullString
		var expiresAt sql.NullTime
		row := s.db.QueryRowContext(ctx, `
			SELECT pgp_sym_decrypt(enc__discord_user_id, $2),
			       pgp_sym_decrypt(enc__bridge_pairing_code, $2),
			       bridge_pairing_code_expires_at
			FROM users WHERE id = $1`, id.Inner, key)
		if err := row.Scan(&gotDiscordID, &gotCode, &expiresAt); err != nil {
			continue
		}
		if gotDiscordID.String == discordUserID && gotCode.String == pairingCode &&
			gotCode.Valid && expiresAt.Valid && expiresAt.Time.After(time.Now()) {
			return id, nil
		}
	}
	return users.UserId{}, ErrPairingCodeNotFound
}

// FindUserByDiscordID scans every user for one whose decrypted
// discord_user_id matches, used to resolve an incoming bridge connection's
// claimed identity before ValidateBridgeSecret checks its credential.
func (s *Store) FindUserByDiscordID(ctx context.Context, discordUserID string) (users.UserId, error) {
	allUsers, err := s.GetAllUsers(ctx)
	if err != nil {
		return users.UserId{}, err
	}
	for _, id := range allUsers {
		key := DecryptionKey(id, s.appUserSecret)
		var gotDiscordID sql.NullString
		row := s.db.QueryRowContext(ctx,
			`SELECT pgp_sym_decrypt(enc__discord_user_id, $2) FROM users WHERE id = $1`,
			id.Inner, key)
		if err := row.Scan(&gotDiscordID); err != nil {
			continue
		}
		if gotDiscordID.Valid && gotDiscordID.String == discordUserID {
			return id, nil
		}
	}
	return users.UserId{}, ErrNoSuchUser
}

// ClearPairingCodeAndSetBridgeSecret finalizes pairing: the bridge secret is
// persisted and the one-time pairing code invalidated in the same update
// (spec §4.5.1 step 2).
func (s *Store) ClearPairingCodeAndSetBridgeSecret(ctx context.Context, userID users.UserId, bridgeSecret string) error {
	key := DecryptionKey(userID, s.appUserSecret)
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			enc__bridge_secret = pgp_sym_encrypt($2, $3),
			enc__bridge_pairing_code = NULL,
			bridge_pairing_code_expires_at = NULL
		WHERE id = $1`,
		userID.Inner, bridgeSecret, key)
	if err != nil {
		return fmt.Errorf("secretstore: clear pairing code and set bridge secret: %w", err)
	}
	return nil
}

// ValidateBridgeSecret reports whether secret matches userID's persisted
// bridge secret, used to authenticate incoming BridgeStream connections.
func (s *Store) ValidateBridgeSecret(ctx context.Context, userID users.UserId, secret string) (bool, error) {
	key := DecryptionKey(userID, s.appUserSecret)
	var got sql.NullString
	row := s.db.QueryRowContext(ctx,
		`SELECT pgp_sym_decrypt(enc__bridge_secret, $2) FROM users WHERE id = $1`,
		userID.Inner, key)
	if err := row.Scan(&got); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNoSuchUser
		}
		return false, fmt.Errorf("secretstore: validate bridge secret: %w", err)
	}
	return got.Valid && got.String == secret && got.String != "", nil
}

// ErrWebsiteURLNameTaken is returned when a website URL name collides with
// another user's (the column carries a UNIQUE constraint).
var ErrWebsiteURLNameTaken = errors.New("secretstore: website url name already taken")

// SetWebsiteURLName sets userID's public fronting-page slug. It is plain
// text, not pgcrypto-encrypted: it is meant to appear in a public URL.
func (s *Store) SetWebsiteURLName(ctx context.Context, userID users.UserId, name string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET website_url_name = $2 WHERE id = $1`, userID.Inner, name)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return ErrWebsiteURLNameTaken
		}
		return fmt.Errorf("secretstore: set website url name: %w", err)
	}
	return nil
}

// FindUserIDByWebsiteURLName resolves the public fronting page's slug to a
// user id, used by the read-only /fronting/{website_url_name} endpoint.
func (s *Store) FindUserIDByWebsiteURLName(ctx context.Context, name string) (users.UserId, error) {
	var id users.UserId
	row := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE website_url_name = $1`, name)
	if err := row.Scan(&id.Inner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return users.UserId{}, ErrNoSuchUser
		}
		return users.UserId{}, fmt.Errorf("secretstore: find user by website url name: %w", err)
	}
	return id, nil
}

// GetAllUsers lists every persisted user id, used by
// FleetManager.RestartAllOnStartup and the per-user metrics cron job.
func (s *Store) GetAllUsers(ctx context.Context) ([]users.UserId, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM users`)
	if err != nil {
		return nil, fmt.Errorf("secretstore: get all users: %w", err)
	}
	defer rows.Close()

	var out []users.UserId
	for rows.Next() {
		var id users.UserId
		if err := rows.Scan(&id.Inner); err != nil {
			return nil, fmt.Errorf("secretstore: scan user id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
