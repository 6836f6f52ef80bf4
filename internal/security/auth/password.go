package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

const saltBytes = 16

// HashPassword returns "hex(salt):hex(sha256(hex(salt)+password))" with a
// fresh 16-byte salt. The digest input is the salt's hex text, not its bytes.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	saltHex := hex.EncodeToString(salt)
	return saltHex + ":" + digest(saltHex, password), nil
}

// VerifyPassword reports whether password matches a HashPassword result.
func VerifyPassword(password, stored string) bool {
	saltHex, want, ok := strings.Cut(stored, ":")
	if !ok || saltHex == "" || want == "" {
		return false
	}
	got := digest(saltHex, password)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func digest(saltHex, password string) string {
	sum := sha256.Sum256([]byte(saltHex + password))
	return hex.EncodeToString(sum[:])
}
