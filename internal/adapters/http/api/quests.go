package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/questforge/questforge/internal/domain/model"
)

// QuestDependencies defines the interface for quest catalog reads.
type QuestDependencies interface {
	Quests(ctx context.Context) []model.Quest
	Quest(ctx context.Context, id string) (model.Quest, error)
}

// QuestsHandler serves the read-only quest catalog.
type QuestsHandler struct {
	deps QuestDependencies
}

// NewQuestsHandler creates a new quests handler.
func NewQuestsHandler(deps QuestDependencies) *QuestsHandler {
	return &QuestsHandler{deps: deps}
}

type questListResponse struct {
	Quests []model.Quest `json:"quests"`
}

// HandleListQuests handles GET /quests requests.
func (h *QuestsHandler) HandleListQuests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, questListResponse{Quests: h.deps.Quests(r.Context())})
}

// HandleGetQuest handles GET /quests/{id} requests.
func (h *QuestsHandler) HandleGetQuest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/quests/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	q, err := h.deps.Quest(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}
