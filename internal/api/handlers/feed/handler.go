// Package feed exposes the timeline endpoints.
package feed

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"Wire/internal/api/handlers"
	"Wire/internal/api/middleware"
	"Wire/internal/core/feeds"
	"Wire/internal/core/timeline"
)

// Handler serves the feed endpoints.
type Handler struct {
	timeline timeline.Service
	log      zerolog.Logger
}

func NewHandler(timelineService timeline.Service, log zerolog.Logger) *Handler {
	return &Handler{
		timeline: timelineService,
		log:      log.With().Str("component", "feed-api").Logger(),
	}
}

// HandleHome returns the merged home timeline: followed posts
// interleaved with explore candidates.
// GET /api/feed/home
func (h *Handler) HandleHome(w http.ResponseWriter, r *http.Request) {
	limit, cursor := handlers.PageParams(r)
	resp, err := h.timeline.Home(r.Context(), middleware.UserID(r), timeline.Request{
		Limit:  limit,
		Cursor: cursor,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, resp)
}

// HandleChronological returns the followed feed only, newest first.
// GET /api/feed/chronological
func (h *Handler) HandleChronological(w http.ResponseWriter, r *http.Request) {
	limit, cursor := handlers.PageParams(r)
	resp, err := h.timeline.Chronological(r.Context(), middleware.UserID(r), timeline.Request{
		Limit:  limit,
		Cursor: cursor,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	handlers.WriteData(w, http.StatusOK, resp)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, feeds.ErrInvalidCursor):
		handlers.WriteError(w, http.StatusBadRequest, "The provided cursor is invalid")
	default:
		h.log.Error().Err(err).Msg("timeline assembly failed")
		handlers.WriteError(w, http.StatusInternalServerError, "An error occurred while fetching the timeline")
	}
}
