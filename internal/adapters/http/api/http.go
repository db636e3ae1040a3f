// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/questforge/questforge/internal/adapters/leaderboard"
	service "github.com/questforge/questforge/internal/app"
	"github.com/questforge/questforge/internal/domain/model"
	"github.com/questforge/questforge/pkg/metrics"
)

// Dependencies required by the HTTP handlers. The interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// Submission idempotency.
	SeenAndRecord(ctx context.Context, id string) bool
	Unrecord(ctx context.Context, id string)

	// Progression operations.
	SubmitCompletion(ctx context.Context, req service.SubmitRequest) (service.Receipt, error)
	EnsureUser(ctx context.Context, userID string) (model.Progress, error)
	UpdateProfile(ctx context.Context, userID string, upd service.ProfileUpdate) (service.ProfileResult, error)
	EvaluateAchievements(ctx context.Context, userID string) ([]service.UnlockedBadge, error)

	// Leaderboard read surface.
	TopN(ctx context.Context, n int) ([]model.Entry, error)
	Rank(ctx context.Context, userID string) (model.Entry, error)
	Nearby(ctx context.Context, userID string, window int) ([]model.Entry, error)
	Subscribe(limit int) (*leaderboard.Subscription, error)

	// Quest catalog.
	Quests(ctx context.Context) []model.Quest
	Quest(ctx context.Context, id string) (model.Quest, error)

	// Monitoring.
	Stats(ctx context.Context) map[string]any
}

// Server wires HTTP routes for the progression API.
type Server struct {
	completionsHandler  *CompletionsHandler
	leaderboardHandler  *LeaderboardHandler
	streamHandler       *StreamHandler
	rankHandler         *RankHandler
	achievementsHandler *AchievementsHandler
	questsHandler       *QuestsHandler
	usersHandler        *UsersHandler
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
}

// NewServer creates the API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := serverConfig{maxLimit: 100, defaultWindow: 3}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		completionsHandler:  NewCompletionsHandler(deps),
		leaderboardHandler:  NewLeaderboardHandler(deps, cfg.maxLimit),
		streamHandler:       NewStreamHandler(deps, cfg.maxLimit),
		rankHandler:         NewRankHandler(deps, cfg.defaultWindow),
		achievementsHandler: NewAchievementsHandler(deps),
		questsHandler:       NewQuestsHandler(deps),
		usersHandler:        NewUsersHandler(deps),
		healthHandler:       NewHealthHandler(),
		statsHandler:        NewStatsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/completions", MetricsMiddleware(s.completionsHandler.HandlePostCompletion, "completions"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/leaderboard/stream", s.streamHandler.HandleStream)
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("/achievements/", MetricsMiddleware(s.achievementsHandler.HandleEvaluate, "achievements"))
	mux.HandleFunc("/quests", MetricsMiddleware(s.questsHandler.HandleListQuests, "quests"))
	mux.HandleFunc("/quests/", MetricsMiddleware(s.questsHandler.HandleGetQuest, "quests"))
	mux.HandleFunc("/users/", MetricsMiddleware(s.usersHandler.HandleUsers, "users"))
}

type serverConfig struct {
	maxLimit      int
	defaultWindow int
}

// Option applies a configuration option to the Server.
type Option func(*serverConfig)

// WithMaxLimit caps the limit query parameter on leaderboard reads.
func WithMaxLimit(n int) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxLimit = n
		}
	}
}

// WithDefaultWindow sets the nearby-ranks window served when none is given.
func WithDefaultWindow(n int) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.defaultWindow = n
		}
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err)
	case errors.Is(err, service.ErrQuestNotFound),
		errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, leaderboard.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_ranked", err)
	case errors.Is(err, leaderboard.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, service.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "timeout", err)
	case errors.Is(err, service.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
