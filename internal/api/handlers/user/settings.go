package user

import (
	"net/http"

	"Wire/internal/api/handlers"
	"Wire/internal/api/middleware"
	"Wire/internal/core/users"
)

// HandleGetSettings returns the authenticated user's preferences.
// GET /api/users/me/settings
func (h *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.users.GetSettings(r.Context(), middleware.UserID(r))
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, settings)
}

// HandleUpdateSettings applies a partial settings edit.
// PUT /api/users/me/settings
func (h *Handler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var upd users.SettingsUpdate
	if !handlers.DecodeJSON(w, r, &upd) {
		return
	}

	settings, err := h.users.UpdateSettings(r.Context(), middleware.UserID(r), upd)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, settings)
}
