package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/amoralabs/amora/internal/apperr"
	"github.com/amoralabs/amora/internal/auth"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

var statusByCode = map[string]int{
	"not_found":         http.StatusNotFound,
	"unauthorized":      http.StatusUnauthorized,
	"forbidden":         http.StatusForbidden,
	"conflict":          http.StatusConflict,
	"limit_exceeded":    http.StatusTooManyRequests,
	"content_violation": http.StatusUnprocessableEntity,
	"validation":        http.StatusBadRequest,
	"internal":          http.StatusInternalServerError,
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps service errors onto stable HTTP statuses. Internal details
// never reach the client.
func writeError(w http.ResponseWriter, err error) {
	code := apperr.Code(err)
	status := statusByCode[code]
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}

	var body errorBody
	body.Error.Code = code
	if status == http.StatusInternalServerError {
		body.Error.Message = "internal server error"
	} else {
		body.Error.Message = err.Error()
	}
	writeJSON(w, status, body)
}

func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}

// session returns the authenticated session; the auth middleware guarantees
// presence on protected routes.
func session(r *http.Request) *auth.Session {
	s, _ := auth.SessionFromContext(r.Context())
	return s
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(started).Milliseconds(),
		)
	})
}
