package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"Wire/internal/core/users"
)

const (
	pbkdf2Iterations = 120_000
	saltLen          = 16
	keyLen           = 32
)

// HashPassword derives a fresh verifier with a random per-user salt.
func HashPassword(password string) (users.Verifier, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return users.Verifier{}, fmt.Errorf("generating salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, keyLen, sha256.New)
	return users.Verifier{
		Salt: base64.StdEncoding.EncodeToString(salt),
		Hash: base64.StdEncoding.EncodeToString(key),
	}, nil
}

// VerifyPassword recomputes the derivation and compares in constant
// time. The full iteration count runs regardless of operand lengths.
func VerifyPassword(v users.Verifier, password string) bool {
	salt, err := base64.StdEncoding.DecodeString(v.Salt)
	if err != nil {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(v.Hash)
	if err != nil {
		return false
	}
	got := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, keyLen, sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

// dummyVerifier burns a full derivation when the account does not
// exist, so login timing does not reveal which identifiers are real.
var dummyVerifier = mustVerifier("timing equalizer")

func mustVerifier(password string) users.Verifier {
	v, err := HashPassword(password)
	if err != nil {
		panic(err)
	}
	return v
}
