package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matthewbaird/landbank/internal/store"
	"github.com/matthewbaird/landbank/internal/timing"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON encode error: %v", err)
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// parseUUID extracts and validates a UUID path parameter.
func parseUUID(w http.ResponseWriter, r *http.Request, paramName string) (string, bool) {
	raw := chi.URLParam(r, paramName)
	if _, err := uuid.Parse(raw); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid UUID: "+raw)
		return "", false
	}
	return raw, true
}

// Pagination holds parsed pagination parameters.
type Pagination struct {
	Limit  int
	Offset int
}

// parsePagination extracts page_size and offset from query params.
func parsePagination(r *http.Request) Pagination {
	p := Pagination{Limit: 20, Offset: 0}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Limit = n
		}
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			p.Offset = n
		}
	}
	return p
}

// storeErrorToHTTP maps store errors to appropriate HTTP responses.
func storeErrorToHTTP(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	log.Printf("internal error: %v", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// timingErrorToHTTP maps timing engine errors to HTTP responses. A property
// with no resolvable schedule or no close date is a data problem in the
// record, not a malformed request.
func timingErrorToHTTP(w http.ResponseWriter, err error) {
	var schedErr *timing.MissingScheduleError
	if errors.As(err, &schedErr) {
		writeError(w, http.StatusUnprocessableEntity, "MISSING_SCHEDULE", schedErr.Error())
		return
	}
	var closeErr *timing.MissingCloseDateError
	if errors.As(err, &closeErr) {
		writeError(w, http.StatusUnprocessableEntity, "MISSING_CLOSE_DATE", closeErr.Error())
		return
	}
	log.Printf("internal error: %v", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// asOf reads the optional as_of query parameter. Absent means wall clock;
// handlers and the sweep worker are the only places the clock enters.
func asOf(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return time.Now(), true
	}
	parsed, err := timing.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_DATE", "invalid as_of date: "+raw)
		return time.Time{}, false
	}
	return parsed, true
}
