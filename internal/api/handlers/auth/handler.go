// Package auth exposes the /api/auth surface: signup, login, token
// refresh and the password reset flow.
package auth

import (
	"net/http"

	"github.com/rs/zerolog"

	"Wire/internal/api/handlers"
	"Wire/internal/api/middleware"
	"Wire/internal/core/auth"
	"Wire/internal/core/users"
)

// Handler serves the auth endpoints.
type Handler struct {
	auth  auth.Service
	users users.Service
	log   zerolog.Logger
}

func NewHandler(authService auth.Service, userService users.Service, log zerolog.Logger) *Handler {
	return &Handler{
		auth:  authService,
		users: userService,
		log:   log.With().Str("component", "auth-api").Logger(),
	}
}

// HandleSignup creates an account.
// POST /api/auth/signup
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupRequest
	if !handlers.DecodeJSON(w, r, &req) {
		return
	}

	session, err := h.auth.Signup(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusCreated, session)
}

type loginBody struct {
	Identifier string `json:"identifier"`
	Handle     string `json:"handle"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

// HandleLogin exchanges credentials for a token. The identifier may be
// a handle or an email; clients that send the older handle/email
// fields still work.
// POST /api/auth/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if !handlers.DecodeJSON(w, r, &body) {
		return
	}

	identifier := body.Identifier
	if identifier == "" {
		identifier = body.Handle
	}
	if identifier == "" {
		identifier = body.Email
	}

	session, err := h.auth.Login(r.Context(), auth.LoginRequest{
		Identifier: identifier,
		Password:   body.Password,
	})
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, session)
}

// HandleRefresh mints a new token for the authenticated user.
// POST /api/auth/refresh
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	session, err := h.auth.Refresh(r.Context(), middleware.UserID(r))
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, session)
}

// HandleLogout acknowledges a logout. Tokens are stateless; discarding
// the client copy is the whole operation.
// POST /api/auth/logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	handlers.WriteData(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

type meResponse struct {
	User     users.ProfileView `json:"user"`
	Email    string            `json:"email"`
	Settings users.Settings    `json:"settings"`
}

// HandleMe returns the authenticated account, including the private
// fields the public profile omits.
// GET /api/auth/me
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	st, err := h.users.Get(r.Context(), middleware.UserID(r))
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, meResponse{
		User:     st.View(),
		Email:    st.Email,
		Settings: st.Settings,
	})
}
