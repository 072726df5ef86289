package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for the trust boundary
var (
	// ErrInvalidCredentials is returned for any bad identifier/password
	// pair. Deliberately uniform: it never says which half was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrHandleTaken is returned when the handle reservation loses.
	ErrHandleTaken = errors.New("handle already taken")

	// ErrEmailTaken is returned when the email reservation loses.
	ErrEmailTaken = errors.New("email already registered")

	// ErrAccountLocked is returned while the failed-login window is hot.
	ErrAccountLocked = errors.New("account temporarily locked")

	// ErrInvalidToken is returned for any bearer token that does not
	// verify: bad signature, expired, malformed, or missing subject.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrBanned is returned when the account is banned.
	ErrBanned = errors.New("account is banned")

	// ErrBanCheckUnavailable means the ban store could not answer. The
	// gate fails closed; handlers surface 503, not 403.
	ErrBanCheckUnavailable = errors.New("ban status unavailable")

	// ErrResetInvalid is returned for any unusable reset token. Uniform
	// for unknown users, wrong tokens and expired ones alike.
	ErrResetInvalid = errors.New("reset token invalid or expired")
)

// ValidationError reports a rejected signup or reset field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a field validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
