// Package bridge implements the desktop-bridge side of the protocol: the
// pairing ceremony that issues a bridge a long-lived secret, and the
// websocket multiplexer that streams rich-presence projections out to a
// paired bridge and reads its updater status back in (spec §4.5).
package bridge

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"sp2any/src/secretstore"
	"sp2any/src/users"
)

const (
	pairingCodeDigits  = 9
	pairingCodeTTL     = 5 * time.Minute
	bridgeSecretLength = 64
	bridgeSecretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Pairing issues and redeems bridge pairing codes (spec §4.5.1).
type Pairing struct {
	Store *secretstore.Store
}

// NewPairing constructs a Pairing backed by store.
func NewPairing(store *secretstore.Store) *Pairing {
	return &Pairing{Store: store}
}

// IssuePairingCode generates a fresh 9-digit code for userID, valid for 5
// minutes, and persists it (spec §4.5.1 step 1: "POST
// /v1/users/{userId}/bridge/pairing-code").
func (p *Pairing) IssuePairingCode(ctx context.Context, userID users.UserId) (string, error) {
	code, err := generatePairingCode()
	if err != nil {
		return "", err
	}
	expiresAt := time.Now().Add(pairingCodeTTL)
	if err := p.Store.SetBridgePairingCode(ctx, userID, code, expiresAt); err != nil {
		return "", err
	}
	return code, nil
}

// Pair redeems a (discordUserID, pairingCode) pair for a durable bridge
// secret, invalidating the pairing code in the same step (spec §4.5.1 step
// 2: "POST /v1/bridge/pair").
func (p *Pairing) Pair(ctx context.Context, discordUserID, pairingCode string) (string, error) {
	userID, err := p.Store.FindUserByDiscordIDAndPairingCode(ctx, discordUserID, pairingCode)
	if err != nil {
		return "", err
	}
	secret, err := generateBridgeSecret()
	if err != nil {
		return "", err
	}
	if err := p.Store.ClearPairingCodeAndSetBridgeSecret(ctx, userID, secret); err != nil {
		return "", err
	}
	return secret, nil
}

func generatePairingCode() (string, error) {
	const min = 100_000_000
	const span = 900_000_000 // [100000000, 999999999]
	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return "", fmt.Errorf("bridge: generate pairing code: %w", err)
	}
	return fmt.Sprintf("%09d", min+n.Int64()), nil
}

func generateBridgeSecret() (string, error) {
	out := make([]byte, bridgeSecretLength)
	alphabetLen := big.NewInt(int64(len(bridgeSecretAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("bridge: generate secret: %w", err)
		}
		out[i] = bridgeSecretAlphabet[n.Int64()]
	}
	return string(out), nil
}
