// Package handlers holds the response envelope and request helpers
// shared by every API surface. Success responses are
// {success:true, data:…}; failures are {success:false, error:…}.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20 // 1 MB

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WriteData writes a success envelope.
func WriteData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// An encode failure means the client went away mid-response;
	// nothing useful is left to do with it.
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

// WriteError writes a failure envelope.
func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: message})
}

// DecodeJSON reads a JSON request body into dst with the 1 MB cap
// applied. It writes the error response itself and reports whether
// decoding succeeded.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large (max 1MB)")
			return false
		}
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// PageParams reads the limit and cursor query parameters. A missing or
// malformed limit comes back zero; services clamp to their own
// defaults.
func PageParams(r *http.Request) (limit int, cursor string) {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	return limit, r.URL.Query().Get("cursor")
}
