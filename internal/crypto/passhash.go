// Package crypto implements password hashing for sign-up and sign-in.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters (tuned for server-side hashing).
const (
	argonTime    uint32 = 3         // iterations
	argonMemory  uint32 = 64 * 1024 // 64 MB
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32

	// SaltLen is the per-identity salt size in bytes.
	SaltLen = 16
)

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// NewCredential hashes a fresh password with a newly generated salt.
func NewCredential(password string) (hash, salt []byte, err error) {
	if password == "" {
		return nil, nil, errors.New("empty password")
	}
	salt, err = RandBytes(SaltLen)
	if err != nil {
		return nil, nil, err
	}
	return HashPassword([]byte(password), salt), salt, nil
}

// HashPassword returns Argon2id hash of password using the provided salt.
func HashPassword(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// VerifyPassword compares in constant time; an empty stored hash never matches.
func VerifyPassword(password, salt, expected []byte) bool {
	if len(expected) == 0 {
		return false
	}
	got := HashPassword(password, salt)
	return subtle.ConstantTimeCompare(got, expected) == 1
}
