package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltLength        = 16
	HashLength        = 32
	DefaultIterations = 200_000
	tokenLength       = 32
)

// HashPassword derives a PBKDF2-SHA256 hash of password with a fresh salt.
func HashPassword(password string, iterations int) (hash, salt []byte, err error) {
	salt = make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("auth: generating salt: %w", err)
	}
	return derive(password, salt, iterations), salt, nil
}

// VerifyPassword compares in constant time.
func VerifyPassword(password string, salt, hash []byte, iterations int) bool {
	if len(hash) != HashLength {
		return false
	}
	return subtle.ConstantTimeCompare(derive(password, salt, iterations), hash) == 1
}

func derive(password string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, HashLength, sha256.New)
}

// GenerateToken returns 32 random bytes encoded as unpadded base64url.
func GenerateToken() (string, error) {
	raw := make([]byte, tokenLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("auth: generating token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
