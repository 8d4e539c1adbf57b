package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/crabby-crew/backend/internal/apperr"
	"github.com/crabby-crew/backend/internal/logger"
	"github.com/crabby-crew/backend/internal/models"
)

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteError converts err to a JSON error body. Internal details are logged
// and never sent to the client.
func WriteError(w http.ResponseWriter, log *logger.Logger, r *http.Request, err error) {
	status := apperr.Status(err)

	resp := models.ErrorResponse{Message: "Internal server error"}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		resp.Message = appErr.Message
		resp.Fields = appErr.Fields
	}

	if status >= http.StatusInternalServerError {
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	WriteJSON(w, status, resp)
}

// DecodeJSON reads the request body into dst.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Invalid("body", "Invalid request body")
	}
	return nil
}

// IntQuery parses a non-negative integer query parameter, falling back to
// defaultVal when absent or malformed.
func IntQuery(query url.Values, key string, defaultVal int) int {
	s := query.Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}
