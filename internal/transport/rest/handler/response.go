package handler

import (
	"brandwatch/internal/model"
	"context"
	"net/http"

	"github.com/gorilla/mux"
)

type ResponseReader interface {
	GetResponse(ctx context.Context, id string) (*model.Response, error)
}

type ResponsePublisher interface {
	PublishNow(ctx context.Context, responseID string) (*model.Response, error)
}

// ResponseHandler handles response endpoints
type ResponseHandler struct {
	responses ResponseReader
	publisher ResponsePublisher
}

// NewResponseHandler creates a new response handler
func NewResponseHandler(responses ResponseReader, publisher ResponsePublisher) *ResponseHandler {
	return &ResponseHandler{responses: responses, publisher: publisher}
}

// Get handles GET /v1/responses/{id}
func (h *ResponseHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp, err := h.responses.GetResponse(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Publish handles POST /v1/responses/{id}/publish and waits for the outcome.
// A failed attempt still returns the updated response next to the error.
func (h *ResponseHandler) Publish(w http.ResponseWriter, r *http.Request) {
	resp, err := h.publisher.PublishNow(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if resp == nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, statusFor(err), map[string]any{
			"error":    err.Error(),
			"response": resp,
		})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
