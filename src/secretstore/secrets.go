// Package secretstore persists per-user configuration whose secret fields
// (tokens, passwords, cookies) are symmetric-encrypted at rest via
// Postgres's pgcrypto extension. The encryption key for a user is derived
// deterministically from the user id and a process-wide application secret,
// and is never logged.
package secretstore

// Encrypted marks a secret field that has not been decrypted: its payload
// is never visible in-process. It carries no data — its only purpose is to
// make "did I forget to decrypt this" a type error.
type Encrypted struct{}

// Decrypted carries a secret's plaintext. The string may be empty; callers
// that require a non-empty secret should use Require.
type Decrypted struct {
	Secret string
}

// Require returns an error built by err() if the secret is empty, otherwise
// returns the decrypted value unchanged.
func (d Decrypted) Require(err func() error) (Decrypted, error) {
	if d.Secret == "" {
		return Decrypted{}, err()
	}
	return d, nil
}
