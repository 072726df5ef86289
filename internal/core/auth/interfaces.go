package auth

import (
	"context"

	"Wire/internal/core/users"
)

// Service is the auth surface behind the /api/auth endpoints.
type Service interface {
	// Signup validates, reserves handle and email atomically, creates
	// the user and returns a fresh session.
	Signup(ctx context.Context, req SignupRequest) (*Session, error)

	// Login exchanges credentials for a session. Failures are uniform
	// ErrInvalidCredentials except for an active lockout window.
	Login(ctx context.Context, req LoginRequest) (*Session, error)

	// Refresh mints a new token for an already-verified user.
	Refresh(ctx context.Context, userID string) (*Session, error)

	// Verify validates a bearer token. It does not consult the ban
	// gate; middleware composes the two.
	Verify(ctx context.Context, token string) (*Claims, error)

	// RequestReset issues a single-use reset token when handle and
	// email match an account. The empty return with nil error is the
	// enumeration-safe miss.
	RequestReset(ctx context.Context, handle, email string) (string, error)

	// ConfirmReset consumes a reset token and installs the new
	// password.
	ConfirmReset(ctx context.Context, handle, token, newPassword string) error
}

// UserSource is the slice of the user domain signup and login need.
// users.Service satisfies it.
type UserSource interface {
	Initialize(ctx context.Context, st users.State) error
	Get(ctx context.Context, id string) (*users.State, error)
	ResolveHandle(ctx context.Context, handle string) (string, error)
	RecordLogin(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id string, v users.Verifier) error
}

// IDGenerator mints user ids.
type IDGenerator interface {
	Generate() (string, error)
}
