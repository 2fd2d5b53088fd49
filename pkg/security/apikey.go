package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

// GenerateAPIKey produces a new credential pair for programmatic access.
// The key ID is public and indexable; the secret is shown to the user once
// and only its hash is persisted.
func GenerateAPIKey() (keyID, secret string, err error) {
	idBytes := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, idBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate key id: %w", err)
	}

	secretBytes := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, secretBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate key secret: %w", err)
	}

	return hex.EncodeToString(idBytes), base64.RawURLEncoding.EncodeToString(secretBytes), nil
}

// HashAPIKeySecret returns the hex SHA-256 digest stored in place of the
// secret.
func HashAPIKeySecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// VerifyAPIKeySecret compares a presented secret against a stored hash in
// constant time.
func VerifyAPIKeySecret(storedHash, secret string) bool {
	sum := sha256.Sum256([]byte(secret))
	presented := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(presented)) == 1
}
