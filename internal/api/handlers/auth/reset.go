package auth

import (
	"net/http"

	"Wire/internal/api/handlers"
)

// resetRequestMessage is returned whether or not the account exists,
// so the endpoint cannot be used to probe for registered handles.
const resetRequestMessage = "If the account exists, a reset token has been issued."

type resetRequestBody struct {
	Handle string `json:"handle"`
	Email  string `json:"email"`
}

// HandleResetRequest issues a password reset token. The token is never
// part of the response; it reaches the user out of band.
// POST /api/auth/reset/request
func (h *Handler) HandleResetRequest(w http.ResponseWriter, r *http.Request) {
	var body resetRequestBody
	if !handlers.DecodeJSON(w, r, &body) {
		return
	}

	token, err := h.auth.RequestReset(r.Context(), body.Handle, body.Email)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	if token != "" {
		// No mailer is wired; the token surfaces through operator
		// tooling. Debug level keeps it out of production logs.
		h.log.Debug().Str("handle", body.Handle).Str("resetToken", token).Msg("reset token issued")
	}

	handlers.WriteData(w, http.StatusOK, map[string]string{"message": resetRequestMessage})
}

type resetConfirmBody struct {
	Handle      string `json:"handle"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// HandleResetConfirm consumes a reset token and installs the new
// password.
// POST /api/auth/reset/confirm
func (h *Handler) HandleResetConfirm(w http.ResponseWriter, r *http.Request) {
	var body resetConfirmBody
	if !handlers.DecodeJSON(w, r, &body) {
		return
	}

	if err := h.auth.ConfirmReset(r.Context(), body.Handle, body.Token, body.NewPassword); err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, map[string]string{"message": "Password updated"})
}
