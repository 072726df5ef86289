// Package media exposes blob upload and serving: the generic upload
// endpoint, the avatar and banner setters, and GET /media/{key}.
package media

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"Wire/internal/api/handlers"
	"Wire/internal/api/middleware"
	"Wire/internal/core/users"
	"Wire/internal/media"
)

// maxUploadBytes caps the multipart body: the 50 MB video limit plus
// form overhead.
const maxUploadBytes = 51 << 20

// Handler serves the media endpoints.
type Handler struct {
	media media.Service
	users users.Service
	log   zerolog.Logger
}

func NewHandler(mediaService media.Service, userService users.Service, log zerolog.Logger) *Handler {
	return &Handler{
		media: mediaService,
		users: userService,
		log:   log.With().Str("component", "media-api").Logger(),
	}
}

// HandleUpload stores a multipart upload and returns its key and URL.
// POST /api/media/upload
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	up, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	handlers.WriteData(w, http.StatusCreated, up)
}

// HandleSetAvatar uploads an image and points the profile's avatar at
// it.
// PUT /api/media/users/me/avatar
func (h *Handler) HandleSetAvatar(w http.ResponseWriter, r *http.Request) {
	h.setProfileImage(w, r, func(url string) users.ProfileUpdate {
		return users.ProfileUpdate{AvatarURL: &url}
	})
}

// HandleSetBanner uploads an image and points the profile's banner at
// it.
// PUT /api/media/users/me/banner
func (h *Handler) HandleSetBanner(w http.ResponseWriter, r *http.Request) {
	h.setProfileImage(w, r, func(url string) users.ProfileUpdate {
		return users.ProfileUpdate{BannerURL: &url}
	})
}

// HandleServe streams a stored blob.
// GET /media/{key}
func (h *Handler) HandleServe(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	f, modTime, err := h.media.Open(key)
	if err != nil {
		// Invalid and missing keys look the same from outside.
		if errors.Is(err, media.ErrInvalidKey) || errors.Is(err, media.ErrNotFound) {
			handlers.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		h.log.Error().Err(err).Str("key", key).Msg("blob open failed")
		handlers.WriteError(w, http.StatusInternalServerError, "An internal error occurred")
		return
	}
	defer f.Close()

	// Blobs are immutable once written; let clients cache hard.
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, key, modTime, f)
}

// readUpload pulls the file out of the multipart form and stores it.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (*media.Upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handlers.WriteError(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return nil, false
		}
		handlers.WriteError(w, http.StatusBadRequest, "Multipart form must carry a file field")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handlers.WriteError(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return nil, false
		}
		h.log.Error().Err(err).Msg("reading upload failed")
		handlers.WriteError(w, http.StatusInternalServerError, "An internal error occurred")
		return nil, false
	}

	up, err := h.media.Upload(data, header.Header.Get("Content-Type"))
	if err != nil {
		h.handleServiceError(w, err)
		return nil, false
	}
	return up, true
}

// setProfileImage is the shared avatar/banner flow: store the image,
// then swap the profile URL. The profile edit invalidates the cached
// profile snapshot through the coordinator.
func (h *Handler) setProfileImage(w http.ResponseWriter, r *http.Request, update func(url string) users.ProfileUpdate) {
	up, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	if !strings.HasPrefix(up.MIME, "image/") {
		// The blob is already stored; take it back out.
		if err := h.media.Delete(up.Key); err != nil {
			h.log.Warn().Err(err).Str("key", up.Key).Msg("orphaned non-image upload")
		}
		handlers.WriteError(w, http.StatusBadRequest, "Avatar and banner must be images")
		return
	}

	view, err := h.users.UpdateProfile(r.Context(), middleware.UserID(r), update(up.URL))
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			handlers.WriteError(w, http.StatusNotFound, "User not found")
			return
		}
		h.log.Error().Err(err).Msg("profile image update failed")
		handlers.WriteError(w, http.StatusInternalServerError, "An internal error occurred")
		return
	}
	handlers.WriteData(w, http.StatusOK, map[string]any{"upload": up, "user": view})
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, media.ErrEmpty):
		handlers.WriteError(w, http.StatusBadRequest, "Upload is empty")
	case errors.Is(err, media.ErrUnsupportedType):
		handlers.WriteError(w, http.StatusBadRequest, "Unsupported media type")
	case errors.Is(err, media.ErrTypeMismatch):
		handlers.WriteError(w, http.StatusBadRequest, "Declared type does not match content")
	case errors.Is(err, media.ErrTooLarge):
		handlers.WriteError(w, http.StatusRequestEntityTooLarge, "Upload exceeds the size limit")
	default:
		h.log.Error().Err(err).Msg("unexpected media error")
		handlers.WriteError(w, http.StatusInternalServerError, "An internal error occurred")
	}
}
