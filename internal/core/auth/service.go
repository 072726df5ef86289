package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"Wire/internal/coord"
	"Wire/internal/core/users"
	"Wire/internal/kv"
)

const (
	loginFailMax    = 5
	loginFailWindow = 15 * time.Minute
	resetTTL        = 15 * time.Minute
)

// SignupRequest carries the raw signup fields.
type SignupRequest struct {
	Handle   string `json:"handle"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest carries the raw login fields. Identifier is a handle or
// an email address.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Session is a minted token plus the public card of its owner.
type Session struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	User      users.ProfileView `json:"user"`
}

type authService struct {
	store   kv.Store
	group   *coord.Group
	users   UserSource
	ids     IDGenerator
	tokens  *Tokens
	limiter *Limiter
	log     zerolog.Logger
}

func NewService(store kv.Store, group *coord.Group, userSrc UserSource, ids IDGenerator, tokens *Tokens, limiter *Limiter, log zerolog.Logger) Service {
	return &authService{
		store:   store,
		group:   group,
		users:   userSrc,
		ids:     ids,
		tokens:  tokens,
		limiter: limiter,
		log:     log,
	}
}

func (s *authService) Signup(ctx context.Context, req SignupRequest) (*Session, error) {
	handle := NormalizeHandle(req.Handle)
	email := NormalizeEmail(req.Email)
	if err := ValidateHandle(handle); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	verifier, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	id, err := s.ids.Generate()
	if err != nil {
		return nil, err
	}

	// Handle and email must be claimed without a race window. Both
	// reservations run under the handle's lock; a partial claim rolls
	// back so neither name is burned.
	err = s.group.Do(ctx, users.KeyHandle(handle), func(ctx context.Context) error {
		ok, err := s.store.SetNX(ctx, users.KeyHandle(handle), id, kv.NoTTL)
		if err != nil {
			return fmt.Errorf("reserving handle: %w", err)
		}
		if !ok {
			return ErrHandleTaken
		}

		ok, err = s.store.SetNX(ctx, users.KeyEmail(email), id, kv.NoTTL)
		if err != nil || !ok {
			if delErr := s.store.Delete(ctx, users.KeyHandle(handle)); delErr != nil {
				s.log.Error().Err(delErr).Str("handle", handle).Msg("handle reservation rollback failed")
			}
			if err != nil {
				return fmt.Errorf("reserving email: %w", err)
			}
			return ErrEmailTaken
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	st := users.State{
		ID:       id,
		Handle:   handle,
		Email:    email,
		Verifier: verifier,
		Profile:  users.Profile{DisplayName: handle},
	}
	if err := s.users.Initialize(ctx, st); err != nil {
		if delErr := s.store.Delete(ctx, users.KeyHandle(handle), users.KeyEmail(email)); delErr != nil {
			s.log.Error().Err(delErr).Str("handle", handle).Msg("signup reservation rollback failed")
		}
		return nil, err
	}

	s.log.Info().Str("userId", id).Str("handle", handle).Msg("user signed up")
	return s.session(ctx, id)
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	ident := NormalizeEmail(req.Identifier)

	id, err := s.resolveIdentifier(ctx, ident)
	if errors.Is(err, users.ErrUserNotFound) {
		// Burn a hash anyway so timing does not leak which identifiers
		// exist.
		VerifyPassword(dummyVerifier, req.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	failures, err := s.limiter.Count(ctx, bucketLoginFail, id)
	if err != nil {
		return nil, err
	}
	if failures >= loginFailMax {
		return nil, ErrAccountLocked
	}

	st, err := s.users.Get(ctx, id)
	if errors.Is(err, users.ErrUserNotFound) {
		VerifyPassword(dummyVerifier, req.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !VerifyPassword(st.Verifier, req.Password) {
		if _, err := s.limiter.Allow(ctx, bucketLoginFail, id, loginFailMax, loginFailWindow); err != nil {
			s.log.Warn().Err(err).Str("userId", id).Msg("recording failed login")
		}
		return nil, ErrInvalidCredentials
	}

	if st.Profile.IsBanned {
		return nil, ErrBanned
	}

	if err := s.limiter.Reset(ctx, bucketLoginFail, id); err != nil {
		s.log.Warn().Err(err).Str("userId", id).Msg("clearing login failures")
	}
	if err := s.users.RecordLogin(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("userId", id).Msg("recording last login")
	}

	token, expires, err := s.tokens.Mint(st.ID, st.Email, st.Handle)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expires, User: st.View()}, nil
}

func (s *authService) Refresh(ctx context.Context, userID string) (*Session, error) {
	return s.session(ctx, userID)
}

func (s *authService) Verify(_ context.Context, token string) (*Claims, error) {
	return s.tokens.Verify(token)
}

func (s *authService) RequestReset(ctx context.Context, handle, email string) (string, error) {
	handle = NormalizeHandle(handle)
	email = NormalizeEmail(email)

	id, err := s.users.ResolveHandle(ctx, handle)
	if errors.Is(err, users.ErrUserNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	st, err := s.users.Get(ctx, id)
	if errors.Is(err, users.ErrUserNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if st.Email != email {
		return "", nil
	}

	buf := make([]byte, resetTokenLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating reset token: %w", err)
	}
	token := hex.EncodeToString(buf)
	digest := sha256.Sum256([]byte(token))
	if err := s.store.Set(ctx, KeyReset(id), hex.EncodeToString(digest[:]), resetTTL); err != nil {
		return "", fmt.Errorf("storing reset token: %w", err)
	}

	s.log.Info().Str("userId", id).Msg("password reset requested")
	return token, nil
}

func (s *authService) ConfirmReset(ctx context.Context, handle, token, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	handle = NormalizeHandle(handle)

	id, err := s.users.ResolveHandle(ctx, handle)
	if errors.Is(err, users.ErrUserNotFound) {
		return ErrResetInvalid
	}
	if err != nil {
		return err
	}

	// GetDel makes the token single-use: even a mismatched guess spends
	// the pending reset.
	stored, err := s.store.GetDel(ctx, KeyReset(id))
	if errors.Is(err, kv.ErrNotFound) {
		return ErrResetInvalid
	}
	if err != nil {
		return err
	}

	digest := sha256.Sum256([]byte(token))
	if subtle.ConstantTimeCompare([]byte(stored), []byte(hex.EncodeToString(digest[:]))) != 1 {
		return ErrResetInvalid
	}

	verifier, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, id, verifier); err != nil {
		return err
	}
	if err := s.limiter.Reset(ctx, bucketLoginFail, id); err != nil {
		s.log.Warn().Err(err).Str("userId", id).Msg("clearing login failures")
	}

	s.log.Info().Str("userId", id).Msg("password reset confirmed")
	return nil
}

// session reloads the account and mints a token for it.
func (s *authService) session(ctx context.Context, userID string) (*Session, error) {
	st, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	token, expires, err := s.tokens.Mint(st.ID, st.Email, st.Handle)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expires, User: st.View()}, nil
}

// resolveIdentifier maps a login identifier to a user id. Anything with
// an @ is treated as an email, the rest as a handle.
func (s *authService) resolveIdentifier(ctx context.Context, ident string) (string, error) {
	if ident == "" {
		return "", users.ErrUserNotFound
	}
	if strings.Contains(ident, "@") {
		id, err := s.store.Get(ctx, users.KeyEmail(ident))
		if errors.Is(err, kv.ErrNotFound) {
			return "", users.ErrUserNotFound
		}
		return id, err
	}
	return s.users.ResolveHandle(ctx, ident)
}
