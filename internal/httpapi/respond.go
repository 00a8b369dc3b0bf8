package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/256dpi/serve"
	"github.com/256dpi/xo"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/UkralStul/blog-service/internal/domain"
)

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type messageBody struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

var statuses = []struct {
	kind xo.BaseErr
	code int
}{
	{domain.ErrInvalid, http.StatusBadRequest},
	{domain.ErrUnauthenticated, http.StatusUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrConflict, http.StatusConflict},
	{domain.ErrUnavailable, http.StatusServiceUnavailable},
}

// statusOf возвращает код ответа для вида ошибки. Неизвестные ошибки - 500.
func statusOf(err error) int {
	for _, s := range statuses {
		if s.kind.Is(err) {
			return s.code
		}
	}
	return http.StatusInternalServerError
}

// fail пишет ошибку в формате {"error": ...}. Для 500 добавляются details и запись в лог.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)

	if code == http.StatusInternalServerError {
		a.log.WithError(err).WithField("request_id", middleware.GetReqID(r.Context())).Error("unexpected error")
		writeJSON(w, code, errorBody{
			Error:   "An unexpected error occurred",
			Details: err.Error(),
		})
		return
	}

	msg, ok := domain.Message(err)
	if !ok {
		msg = http.StatusText(code)
	}
	if code == http.StatusServiceUnavailable {
		a.log.WithError(err).Warn("dependency unavailable")
	}
	writeJSON(w, code, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decode читает JSON тело запроса.
func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, serve.ErrBodyLimitExceeded) {
			return domain.E(domain.ErrInvalid, "Request body too large")
		}
		return domain.E(domain.ErrInvalid, "Invalid request body")
	}
	return nil
}
