package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"tvcatalog/internal/repository"
)

var errValidation = errors.New("validation failed")

// ProblemDetail is an RFC7807 problem body.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func problem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ProblemDetail{
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// respondError maps repository and request errors onto problem responses.
// Internal details are only logged.
func respondError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, errValidation):
		problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
	case errors.Is(err, repository.ErrNotFound):
		problem(w, http.StatusNotFound, "Not Found", "no product matches the identifier")
	case errors.Is(err, repository.ErrStoreUnavailable), errors.Is(err, repository.ErrSchemaUnavailable):
		logger.Error("catalog unavailable", slog.String("path", r.URL.Path), slog.Any("error", err))
		problem(w, http.StatusServiceUnavailable, "Catalog Unavailable", "the product store cannot be read right now")
	default:
		logger.Error("request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
