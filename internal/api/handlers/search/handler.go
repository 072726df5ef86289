// Package search exposes the search endpoint.
package search

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"Wire/internal/api/handlers"
	"Wire/internal/core/search"
)

const (
	defaultLimit = 20
	maxLimit     = 50
)

// Handler serves the search endpoint.
type Handler struct {
	search search.Service
	log    zerolog.Logger
}

func NewHandler(service search.Service, log zerolog.Logger) *Handler {
	return &Handler{
		search: service,
		log:    log.With().Str("component", "search-api").Logger(),
	}
}

// HandleSearch answers post and people queries. type=top searches post
// content; type=people matches handle and display-name prefixes. The
// cursor is a plain offset into the ranked result order.
// GET /api/search?q=&type={top|people}&limit=&cursor=
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		handlers.WriteError(w, http.StatusBadRequest, "q is required")
		return
	}

	kind := r.URL.Query().Get("type")
	if kind == "" {
		kind = "top"
	}
	if kind != "top" && kind != "people" {
		handlers.WriteError(w, http.StatusBadRequest, "type must be top or people")
		return
	}

	limit, cursor := handlers.PageParams(r)
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			handlers.WriteError(w, http.StatusBadRequest, "The provided cursor is invalid")
			return
		}
		offset = n
	}

	switch kind {
	case "top":
		hits, err := h.search.SearchPosts(r.Context(), q, offset+limit)
		if err != nil {
			h.fail(w, err)
			return
		}
		window, next, more := page(len(hits), offset, limit)
		handlers.WriteData(w, http.StatusOK, map[string]any{
			"posts":   hits[window[0]:window[1]],
			"cursor":  next,
			"hasMore": more,
		})

	case "people":
		hits, err := h.search.SearchUsers(r.Context(), q, offset+limit)
		if err != nil {
			h.fail(w, err)
			return
		}
		window, next, more := page(len(hits), offset, limit)
		handlers.WriteData(w, http.StatusOK, map[string]any{
			"users":   hits[window[0]:window[1]],
			"cursor":  next,
			"hasMore": more,
		})
	}
}

// page clamps an offset window over n ranked results. hasMore is a
// best-effort signal: the service was asked for one full window past
// the offset, so a short read means the results ran out.
func page(n, offset, limit int) (window [2]int, next string, more bool) {
	if offset > n {
		offset = n
	}
	end := offset + limit
	if end > n {
		end = n
	}
	if end == offset+limit {
		next = strconv.Itoa(end)
	}
	return [2]int{offset, end}, next, next != ""
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.log.Error().Err(err).Msg("search failed")
	handlers.WriteError(w, http.StatusInternalServerError, "An error occurred while searching")
}
