package feeds

import "errors"

var (
	// ErrInvalidCursor means the page cursor did not decode.
	ErrInvalidCursor = errors.New("invalid feed cursor")
)
