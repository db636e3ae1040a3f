package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	service "github.com/questforge/questforge/internal/app"
	"github.com/questforge/questforge/internal/domain/model"
)

// UserDependencies defines the interface for user record operations.
type UserDependencies interface {
	EnsureUser(ctx context.Context, userID string) (model.Progress, error)
	UpdateProfile(ctx context.Context, userID string, upd service.ProfileUpdate) (service.ProfileResult, error)
}

// UsersHandler handles user record creation and profile writes.
type UsersHandler struct {
	deps UserDependencies
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(deps UserDependencies) *UsersHandler {
	return &UsersHandler{deps: deps}
}

// profileRequest is the PATCH /users/{userID}/profile body. Absent fields
// are left untouched; XP, level, rank and badges are not writable here.
type profileRequest struct {
	Name           *string `json:"name,omitempty"`
	PhotoURL       *string `json:"photoURL,omitempty"`
	Bio            *string `json:"bio,omitempty"`
	Specialization *string `json:"specialization,omitempty"`
}

type profileResponse struct {
	Profile  model.Progress `json:"profile"`
	Degraded bool           `json:"degraded,omitempty"`
}

// HandleUsers routes POST /users/{userID} (first-auth record creation,
// idempotent) and PATCH /users/{userID}/profile.
func (h *UsersHandler) HandleUsers(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/users/")
	userID, sub, hasSub := strings.Cut(rest, "/")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	switch {
	case !hasSub && r.Method == http.MethodPost:
		h.handleEnsure(w, r, userID)
	case hasSub && sub == "profile" && r.Method == http.MethodPatch:
		h.handleProfile(w, r, userID)
	default:
		http.NotFound(w, r)
	}
}

func (h *UsersHandler) handleEnsure(w http.ResponseWriter, r *http.Request, userID string) {
	p, err := h.deps.EnsureUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *UsersHandler) handleProfile(w http.ResponseWriter, r *http.Request, userID string) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	res, err := h.deps.UpdateProfile(r.Context(), userID, service.ProfileUpdate{
		Name:           req.Name,
		PhotoURL:       req.PhotoURL,
		Bio:            req.Bio,
		Specialization: req.Specialization,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if res.Degraded {
		// The write landed in the degraded local tier only.
		status = http.StatusAccepted
	}
	writeJSON(w, status, profileResponse{Profile: res.Progress, Degraded: res.Degraded})
}
