package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	service "github.com/questforge/questforge/internal/app"
)

// CompletionDependencies defines the interface for submission handling.
type CompletionDependencies interface {
	SeenAndRecord(ctx context.Context, id string) bool
	Unrecord(ctx context.Context, id string)
	SubmitCompletion(ctx context.Context, req service.SubmitRequest) (service.Receipt, error)
}

// CompletionsHandler handles quest completion submissions.
type CompletionsHandler struct {
	deps CompletionDependencies
}

// NewCompletionsHandler creates a new completions handler.
func NewCompletionsHandler(deps CompletionDependencies) *CompletionsHandler {
	return &CompletionsHandler{deps: deps}
}

// completionRequest is the POST /completions body. SubmissionID is an
// optional client-chosen idempotency key; retries with the same id get the
// duplicate acknowledgement instead of a second transaction.
type completionRequest struct {
	UserID       string `json:"userId"`
	QuestID      string `json:"questId"`
	Artifact     string `json:"submittedArtifact"`
	SubmissionID string `json:"submissionId,omitempty"`
}

type duplicateResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePostCompletion handles POST /completions requests.
func (h *CompletionsHandler) HandlePostCompletion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req completionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	subID := strings.TrimSpace(req.SubmissionID)
	if subID != "" && h.deps.SeenAndRecord(r.Context(), subID) {
		writeJSON(w, http.StatusOK, duplicateResponse{Status: "duplicate", Duplicate: true})
		return
	}

	receipt, err := h.deps.SubmitCompletion(r.Context(), service.SubmitRequest{
		UserID:   req.UserID,
		QuestID:  req.QuestID,
		Artifact: req.Artifact,
	})
	if err != nil {
		// Let the client retry with the same submission id.
		if subID != "" {
			h.deps.Unrecord(r.Context(), subID)
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
