package handler

import (
	"brandwatch/internal/repository"
	"brandwatch/internal/service"
	"encoding/json"
	"errors"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusFor maps pipeline errors onto HTTP status codes
func statusFor(err error) int {
	var notFound *service.NotFoundError
	var publishErr *service.PublishError
	switch {
	case errors.As(err, &notFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidPost):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrResponseAlreadyPosted):
		return http.StatusConflict
	case errors.Is(err, service.ErrMissingReplyTarget), errors.Is(err, service.ErrNotResponseWorthy):
		return http.StatusUnprocessableEntity
	case errors.As(err, &publishErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
