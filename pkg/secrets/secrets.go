// Package secrets generates and verifies bearer tokens for emergency shares.
// Raw tokens are returned exactly once and never stored; only their digest is
// persisted. Verification is constant-time to avoid timing side-channels when
// scanning candidate shares.
package secrets

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"

	"golang.org/x/crypto/sha3"

	dErrors "curanet/pkg/domain-errors"
)

// tokenBytes is the entropy of a raw token before encoding.
const tokenBytes = 32

// PrefixLength is how many characters of a presented token may appear in logs
// and audit metadata on failed redemptions. Enough to correlate attempts,
// never enough to reconstruct the token.
const PrefixLength = 8

// GenerateToken creates a cryptographically secure random bearer token.
// Returns the base64url-encoded raw token.
func GenerateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate token")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken derives the stored digest of a raw token. SHA3-256 over the raw
// token: tokens carry 256 bits of entropy, so a fast hash is appropriate here
// (unlike passwords, no stretching is needed) and keeps the redemption scan
// cheap.
func HashToken(raw string) string {
	sum := sha3.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// VerifyToken compares a raw token against a stored digest in constant time.
func VerifyToken(raw, storedHash string) bool {
	computed := HashToken(raw)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

// Prefix returns the loggable prefix of a presented token.
func Prefix(raw string) string {
	if len(raw) <= PrefixLength {
		return raw
	}
	return raw[:PrefixLength]
}
