package api

import (
	"context"
	"net/http"
	"strings"

	service "github.com/questforge/questforge/internal/app"
)

// AchievementDependencies defines the interface for badge re-evaluation.
type AchievementDependencies interface {
	EvaluateAchievements(ctx context.Context, userID string) ([]service.UnlockedBadge, error)
}

// AchievementsHandler handles badge evaluation requests.
type AchievementsHandler struct {
	deps AchievementDependencies
}

// NewAchievementsHandler creates a new achievements handler.
func NewAchievementsHandler(deps AchievementDependencies) *AchievementsHandler {
	return &AchievementsHandler{deps: deps}
}

type evaluateResponse struct {
	UserID         string                  `json:"userId"`
	UnlockedBadges []service.UnlockedBadge `json:"unlockedBadges"`
}

// HandleEvaluate handles POST /achievements/{userID}/evaluate requests, the
// idempotent repair hook for users whose badge state lags their stats.
func (h *AchievementsHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/achievements/")
	userID, action, found := strings.Cut(rest, "/")
	if !found || userID == "" || action != "evaluate" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	unlocked, err := h.deps.EvaluateAchievements(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evaluateResponse{UserID: userID, UnlockedBadges: unlocked})
}
