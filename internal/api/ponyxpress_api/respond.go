package ponyxpress_api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/ponyxpress/ponyxpress/internal/access"
	"github.com/ponyxpress/ponyxpress/internal/models"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("api: encode response", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	}
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch models.KindOf(err) {
	case models.KindAuthFailure:
		if models.CodeOf(err) == models.ErrTooManyAttempts.Code {
			return http.StatusTooManyRequests
		}
		return http.StatusUnauthorized
	case models.KindAuthorizationDenied:
		if models.CodeOf(err) == string(access.ReasonNotAuthenticated) {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case models.KindValidation:
		if models.CodeOf(err) == models.ErrRequestTooLarge.Code {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadRequest
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindConflict:
		return http.StatusConflict
	case models.KindStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: models.CodeOf(err), Message: err.Error()}

	switch status {
	case http.StatusInternalServerError:
		slog.Error("api: internal error", "method", r.Method, "path", r.URL.Path, "error", err.Error())
		body.Message = "internal error"
	case http.StatusServiceUnavailable:
		slog.Warn("api: storage unavailable", "method", r.Method, "path", r.URL.Path, "error", err.Error())
		w.Header().Set("Retry-After", "1")
		body.Message = models.ErrStorageUnavailable.Message
	case http.StatusTooManyRequests:
		w.Header().Set("Retry-After", "60")
	}
	// Сообщения ошибок классификации могут включать контекст обёртки;
	// клиенту отдаём только исходный текст.
	var e *models.Error
	if status < 500 && errors.As(err, &e) {
		body.Message = e.Message
	}
	writeJSON(w, r, status, body)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return models.ErrRequestTooLarge
		}
		return models.ErrInvalidRequest
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.ErrInvalidID
	}
	return id, nil
}

// queryID returns nil when the parameter is absent.
func queryID(r *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, models.ErrInvalidID
	}
	return &id, nil
}

// parseDate reads YYYY-MM-DD; an empty value yields def.
func parseDate(raw string, def time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	d, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return time.Time{}, models.ErrInvalidDate
	}
	return d, nil
}
