package notifications

import "errors"

var (
	// ErrNotificationNotFound means the id is absent from the
	// recipient's inbox or already expired.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrUnknownKind rejects a notification kind outside the fixed set.
	ErrUnknownKind = errors.New("unknown notification kind")

	// ErrInvalidCursor means the page cursor did not decode.
	ErrInvalidCursor = errors.New("invalid notification cursor")
)
