package users

import (
	"errors"
	"fmt"
)

// Sentinel errors for user operations
var (
	// ErrUserNotFound is returned when a user lookup finds no record
	ErrUserNotFound = errors.New("user not found")

	// ErrAlreadyInitialized is returned when initialize hits an existing user blob
	ErrAlreadyInitialized = errors.New("user already initialized")

	// ErrSelfUnfollow is returned on attempts to remove the self-follow edge
	ErrSelfUnfollow = errors.New("cannot unfollow yourself")

	// ErrSelfBlock is returned on attempts to block yourself
	ErrSelfBlock = errors.New("cannot block yourself")

	// ErrBlocked is returned when a follow crosses a block edge in either direction
	ErrBlocked = errors.New("blocked relationship")

	// ErrUserBanned is returned when an operation requires an account in good standing
	ErrUserBanned = errors.New("user is banned")
)

// ValidationError reports a rejected field on profile or settings edits.
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

// CorruptStateError marks an undecodable user blob. This is not
// recoverable by retrying; callers surface it as an internal failure.
type CorruptStateError struct {
	ID  string
	Err error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("corrupt user state %s: %v", e.ID, e.Err)
}

func (e *CorruptStateError) Unwrap() error { return e.Err }
