// Package auth is a deliberately thin stand-in for the registration/login
// collaborator the core treats as external: password hashing and JWT
// issuance/verification. It exists so the process has something to run
// behind its HTTP routes; neither piece is part of the synchronization
// core itself.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"sp2any/src/users"
)

// HashPassword bcrypt-hashes a plaintext password for storage.
func HashPassword(plaintext string) (users.PasswordHashString, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return users.PasswordHashString{}, err
	}
	return users.PasswordHashString{Inner: string(hash)}, nil
}

// CheckPassword reports whether plaintext matches hash.
func CheckPassword(hash users.PasswordHashString, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash.Inner), []byte(plaintext)) == nil
}

// ErrInvalidToken covers any failure to parse, verify, or read claims from
// a session token.
var ErrInvalidToken = errors.New("auth: invalid token")

type claims struct {
	jwt.RegisteredClaims
}

// IssueToken mints a signed, HS256 session token for userID valid for ttl,
// using secret as the application-wide signing key.
func IssueToken(secret string, userID users.UserId, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString([]byte(secret))
}

// VerifyToken validates tokenString against secret and returns the user id
// it carries.
func VerifyToken(secret, tokenString string) (users.UserId, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return users.UserId{}, ErrInvalidToken
	}
	c, ok := parsed.Claims.(*claims)
	if !ok {
		return users.UserId{}, ErrInvalidToken
	}
	return users.ParseUserId(c.Subject)
}
