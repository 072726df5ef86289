package posts

import (
	"errors"
	"fmt"
)

// Sentinel errors for post operations
var (
	// ErrPostNotFound is returned for unknown ids and for tombstoned posts
	ErrPostNotFound = errors.New("post not found")

	// ErrAlreadyInitialized is returned when initialize hits an existing post
	ErrAlreadyInitialized = errors.New("post already initialized")

	// ErrAlreadyReposted is returned on a second repost of the same post
	ErrAlreadyReposted = errors.New("post already reposted")

	// ErrSelfRepost is returned when an author reposts their own post
	ErrSelfRepost = errors.New("cannot repost your own post")

	// ErrRepostWithContent is returned when a repost carries content;
	// commentary belongs on a quote
	ErrRepostWithContent = errors.New("repost cannot carry content")

	// ErrNotAuthorized is returned when a non-owner tries to delete
	ErrNotAuthorized = errors.New("not authorized")
)

// ValidationError reports a rejected field on post creation.
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

// CorruptStateError marks an undecodable post blob.
type CorruptStateError struct {
	ID  string
	Err error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("corrupt post state %s: %v", e.ID, e.Err)
}

func (e *CorruptStateError) Unwrap() error { return e.Err }
