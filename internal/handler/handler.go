// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Shivanand-hulikatti/slotswap/internal/auth"
	"github.com/Shivanand-hulikatti/slotswap/internal/model"
)

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

var errorKinds = []struct {
	err    error
	status int
}{
	{model.ErrValidation, http.StatusBadRequest},
	{model.ErrUnauthenticated, http.StatusUnauthorized},
	{model.ErrAuthorization, http.StatusForbidden},
	{model.ErrNotFound, http.StatusNotFound},
	{model.ErrConflict, http.StatusConflict},
}

// writeServiceError maps an error kind to its status code. The kind prefix
// is stripped so clients only see the detail. Anything unclassified is
// logged and reported as a 500 without detail.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			writeError(w, k.status, strings.TrimPrefix(err.Error(), k.err.Error()+": "))
			return
		}
	}
	log.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// currentUser returns the id placed in the context by auth.Middleware.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
	}
	return userID, ok
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
