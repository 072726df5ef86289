// Package auth owns the trust boundary: signup validation and identity
// reservation, password hashing and verification, bearer token mint and
// verify, the cached ban gate, rate-limit windows and password reset.
package auth

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	emailMaxLen   = 254
	passwordMin   = 8
	passwordMax   = 128
	resetTokenLen = 32
)

// Rate-limit bucket names. The IP and per-user buckets are enforced by
// the API middleware; the failure bucket is internal to login.
const (
	BucketSignupIP   = "signup-ip"
	BucketLoginIP    = "login-ip"
	BucketPostUser   = "post-user"
	BucketLikeUser   = "like-user"
	BucketFollowUser = "follow-user"
	bucketLoginFail  = "login-fail"
)

var (
	handleRe = regexp.MustCompile(`^[a-z0-9_]{3,15}$`)
	// emailRe is the pragmatic RFC-like check: one @, a dotted domain,
	// no whitespace. Full RFC 5322 grammar buys nothing here.
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]*[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]*[a-zA-Z0-9])?)+$`)
)

// reservedHandles are names the platform keeps for itself.
var reservedHandles = map[string]bool{
	"about": true, "admin": true, "administrator": true, "api": true,
	"help": true, "mod": true, "moderator": true, "root": true,
	"support": true, "system": true, "wire": true, "www": true,
}

// NormalizeHandle case-folds and trims a handle.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

// NormalizeEmail case-folds and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateHandle checks a normalized handle: 3-15 chars of [a-z0-9_],
// no leading underscore, not reserved.
func ValidateHandle(handle string) error {
	if !handleRe.MatchString(handle) {
		return &ValidationError{Field: "handle", Reason: "must be 3-15 characters of a-z, 0-9 or _"}
	}
	if strings.HasPrefix(handle, "_") {
		return &ValidationError{Field: "handle", Reason: "cannot start with an underscore"}
	}
	if reservedHandles[handle] {
		return &ValidationError{Field: "handle", Reason: "is reserved"}
	}
	return nil
}

// ValidateEmail checks a normalized email address.
func ValidateEmail(email string) error {
	if email == "" || len(email) > emailMaxLen {
		return &ValidationError{Field: "email", Reason: fmt.Sprintf("must be 1-%d characters", emailMaxLen)}
	}
	if !emailRe.MatchString(email) {
		return &ValidationError{Field: "email", Reason: "is not a valid address"}
	}
	return nil
}

// ValidatePassword checks length and composition: 8-128 characters with
// at least one upper-case letter, one lower-case letter and one digit.
func ValidatePassword(password string) error {
	if n := len(password); n < passwordMin || n > passwordMax {
		return &ValidationError{Field: "password", Reason: fmt.Sprintf("must be %d-%d characters", passwordMin, passwordMax)}
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return &ValidationError{Field: "password", Reason: "must contain an upper-case letter, a lower-case letter and a digit"}
	}
	return nil
}

// KeyReset is the KV key holding the hashed single-use reset token.
func KeyReset(userID string) string { return fmt.Sprintf("reset:%s", userID) }
