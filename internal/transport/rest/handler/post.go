package handler

import (
	"brandwatch/internal/logging"
	"brandwatch/internal/model"
	"context"
	"encoding/json"
	"net/http"
)

// PostSubmitter queues observed posts for scoring
type PostSubmitter interface {
	SubmitPost(ctx context.Context, event *model.PostEvent) (string, error)
}

// PostHandler is the ingestion endpoint
type PostHandler struct {
	submitter PostSubmitter
	logger    logging.Logger
}

// NewPostHandler creates a new post handler
func NewPostHandler(submitter PostSubmitter, logger logging.Logger) *PostHandler {
	return &PostHandler{submitter: submitter, logger: logger}
}

// Submit handles POST /v1/posts
func (h *PostHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var event model.PostEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	jobID, err := h.submitter.SubmitPost(r.Context(), &event)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.WithError(err).WithField("postId", event.ExternalPostID).Error("Failed to queue post")
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID})
}
