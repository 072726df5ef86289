package media

import "errors"

var (
	// ErrEmpty indicates an upload with no payload.
	ErrEmpty = errors.New("media: empty upload")

	// ErrUnsupportedType indicates a content type outside the whitelist.
	ErrUnsupportedType = errors.New("media: unsupported content type")

	// ErrTypeMismatch indicates the declared content type disagrees with
	// what the payload actually contains.
	ErrTypeMismatch = errors.New("media: declared type does not match content")

	// ErrTooLarge indicates the payload exceeds the cap for its kind.
	ErrTooLarge = errors.New("media: upload too large")

	// ErrInvalidKey indicates a blob key that is not one we issued.
	ErrInvalidKey = errors.New("media: invalid blob key")

	// ErrNotFound indicates no blob is stored under the key.
	ErrNotFound = errors.New("media: blob not found")
)
