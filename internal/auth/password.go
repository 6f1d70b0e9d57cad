package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword verifies a plaintext password against a stored hash.
// Accounts imported from the old system carry unsalted SHA-256 hex
// digests instead of bcrypt hashes, so those are accepted too.
func CheckPassword(hash, plain string) bool {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)); err == nil {
		return true
	}
	sum := sha256.Sum256([]byte(plain))
	legacy := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(legacy), []byte(hash)) == 1
}

// IsLegacyHash reports whether a stored hash is an old-system SHA-256
// digest that should be upgraded to bcrypt on the next successful login.
func IsLegacyHash(hash string) bool {
	if len(hash) != 64 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}
