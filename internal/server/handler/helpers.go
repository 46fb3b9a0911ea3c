// Package handler contains the HTTP handlers for the betting API. Handlers
// declare the slice of the service layer they need as local interfaces so
// the package never depends on concrete service types.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/poolbet/poolbet/internal/domain"
)

// writeJSON marshals v as JSON and writes it with the given status code.
// If marshaling fails it falls back to a plain 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps a domain sentinel to its HTTP status and writes the
// error body. Unrecognized errors are logged and returned as opaque 500s.
func writeDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, known := errorStatus(err)
	if !known {
		logger.ErrorContext(r.Context(), "handler: request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

// errorStatus resolves a domain sentinel to an HTTP status code. The second
// return is false when the error carries no sentinel the API maps.
func errorStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, domain.ErrMarketNotFound),
		errors.Is(err, domain.ErrBetNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrBlobNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest, true
	case errors.Is(err, domain.ErrMarketInactive),
		errors.Is(err, domain.ErrNotResolved),
		errors.Is(err, domain.ErrNoWinnings):
		return http.StatusUnprocessableEntity, true
	case errors.Is(err, domain.ErrAlreadyResolved),
		errors.Is(err, domain.ErrAlreadyClaimed),
		errors.Is(err, domain.ErrConcurrencyConflict):
		return http.StatusConflict, true
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusPaymentRequired, true
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden, true
	default:
		return 0, false
	}
}

// parseListOpts extracts pagination from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// pathID extracts a named int64 path parameter via Go 1.22 routing.
func pathID(r *http.Request, name string) (int64, error) {
	v := r.PathValue(name)
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// callerID reads the acting user from the X-User-ID header. The gateway in
// front of this service resolves sessions to user IDs; the API trusts the
// header once the request passed API-key auth.
func callerID(r *http.Request) (int64, error) {
	v := r.Header.Get("X-User-ID")
	if v == "" {
		return 0, errors.New("missing X-User-ID header")
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid X-User-ID header")
	}
	return id, nil
}
