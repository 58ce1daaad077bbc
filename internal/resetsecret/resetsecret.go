package resetsecret

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const secretBytes = 32

// Generate returns a fresh 64 character hex secret and its digest. Only the
// digest is meant to be stored.
func Generate() (plaintext, hash string, err error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("error reading random bytes: %w", err)
	}

	plaintext = hex.EncodeToString(b)

	return plaintext, Hash(plaintext), nil
}

// Hash is the stored form of a secret. Consumption looks the user up by this
// digest in SQL, so no plaintext comparison happens in Go.
func Hash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
