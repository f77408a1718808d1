package password

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// resetTokenBytes is the entropy of a reset secret before hex encoding.
const resetTokenBytes = 24

// ResetTokens generates high-entropy reset secrets and their SHA-256 digests.
//
// The secret is random rather than user chosen, so a fast digest is enough:
// there is no dictionary to brute force. Only the digest is ever stored.
type ResetTokens struct{}

// NewResetTokens creates a ResetTokens.
func NewResetTokens() ResetTokens {
	return ResetTokens{}
}

// Generate returns a new hex-encoded reset secret.
func (ResetTokens) Generate() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Digest returns the hex-encoded SHA-256 digest of token.
func (ResetTokens) Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
