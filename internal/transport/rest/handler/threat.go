package handler

import (
	"brandwatch/internal/model"
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

type ThreatReader interface {
	GetThreat(ctx context.Context, id string) (*model.Threat, error)
}

type VerifyEnqueuer interface {
	EnqueueVerify(ctx context.Context, threatID string, autoPost bool) (string, bool, error)
}

// ThreatHandler handles threat endpoints
type ThreatHandler struct {
	threats ThreatReader
	jobs    VerifyEnqueuer
}

// NewThreatHandler creates a new threat handler
func NewThreatHandler(threats ThreatReader, jobs VerifyEnqueuer) *ThreatHandler {
	return &ThreatHandler{threats: threats, jobs: jobs}
}

// Get handles GET /v1/threats/{id}
func (h *ThreatHandler) Get(w http.ResponseWriter, r *http.Request) {
	threat, err := h.threats.GetThreat(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, threat)
}

// Verify handles POST /v1/threats/{id}/verify. The job is queued and the
// caller gets its id back immediately. ?autoPost=true|false overrides the
// threat's own setting.
func (h *ThreatHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	threat, err := h.threats.GetThreat(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	autoPost := threat.AutoPost
	if v := r.URL.Query().Get("autoPost"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "autoPost must be a boolean")
			return
		}
		autoPost = parsed
	}

	jobID, queued, err := h.jobs.EnqueueVerify(r.Context(), id, autoPost)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"jobId":  jobID,
		"queued": queued,
	})
}
