package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/questforge/questforge/internal/adapters/leaderboard"
	"github.com/questforge/questforge/internal/domain/model"
)

// RankDependencies defines the interface for rank reads.
type RankDependencies interface {
	Rank(ctx context.Context, userID string) (model.Entry, error)
	Nearby(ctx context.Context, userID string, window int) ([]model.Entry, error)
}

// RankHandler handles per-user rank requests.
type RankHandler struct {
	deps          RankDependencies
	defaultWindow int
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies, defaultWindow int) *RankHandler {
	return &RankHandler{deps: deps, defaultWindow: defaultWindow}
}

type rankResponse struct {
	Entry  model.Entry   `json:"entry"`
	Nearby []model.Entry `json:"nearby"`
}

type notRankedResponse struct {
	UserID string `json:"user_id"`
	Ranked bool   `json:"ranked"`
	Reason string `json:"reason"`
}

// HandleGetRank handles GET /rank/{userID}?window=K requests. An untracked
// user degrades to an explicit not-ranked body instead of a bare 404.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID := strings.TrimPrefix(r.URL.Path, "/rank/")
	if userID == "" || strings.Contains(userID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	window := h.defaultWindow
	if windowStr := r.URL.Query().Get("window"); windowStr != "" {
		parsed, err := strconv.Atoi(windowStr)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		window = parsed
	}

	entry, err := h.deps.Rank(r.Context(), userID)
	if err != nil {
		if errors.Is(err, leaderboard.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, notRankedResponse{
				UserID: userID,
				Ranked: false,
				Reason: "not ranked yet",
			})
			return
		}
		writeServiceError(w, err)
		return
	}

	nearby, err := h.deps.Nearby(r.Context(), userID, window)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rankResponse{Entry: entry, Nearby: nearby})
}
