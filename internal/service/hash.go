package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// HashSHA256 stores an unsalted hex SHA-256 digest, compatible with existing user files.
	HashSHA256 = "sha256"
	// HashBcrypt stores a salted bcrypt hash.
	HashBcrypt = "bcrypt"
)

// Hasher turns passwords into stored hashes.
type Hasher interface {
	Hash(password string) (string, error)
}

// NewHasher returns the hasher for algo. An empty algo selects SHA-256.
func NewHasher(algo string) (Hasher, error) {
	switch strings.ToLower(algo) {
	case "", HashSHA256:
		return SHA256Hasher{}, nil
	case HashBcrypt:
		return BcryptHasher{Cost: bcrypt.DefaultCost}, nil
	default:
		return nil, fmt.Errorf("unknown hash algorithm %q", algo)
	}
}

// SHA256Hasher hashes with a single SHA-256 pass and no salt.
type SHA256Hasher struct{}

// Hash returns the lowercase hex digest of password.
func (SHA256Hasher) Hash(password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:]), nil
}

// BcryptHasher hashes with bcrypt at the given cost.
type BcryptHasher struct {
	Cost int
}

// Hash returns the bcrypt hash of password.
func (h BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether password matches stored. The algorithm is
// taken from the format of stored, so files may mix both kinds of hash.
func VerifyPassword(stored, password string) bool {
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	digest, _ := SHA256Hasher{}.Hash(password)
	return subtle.ConstantTimeCompare([]byte(digest), []byte(stored)) == 1
}
