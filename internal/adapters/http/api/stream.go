package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/questforge/questforge/internal/adapters/leaderboard"
)

// StreamDependencies defines the interface for leaderboard streaming.
type StreamDependencies interface {
	Subscribe(limit int) (*leaderboard.Subscription, error)
}

// StreamHandler serves the leaderboard as a Server-Sent Events feed.
type StreamHandler struct {
	deps     StreamDependencies
	maxLimit int
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(deps StreamDependencies, maxLimit int) *StreamHandler {
	return &StreamHandler{deps: deps, maxLimit: maxLimit}
}

type streamEvent struct {
	Entries []streamEntry `json:"entries"`
	Players int           `json:"players"`
	At      string        `json:"at"`
}

type streamEntry struct {
	Rank    int    `json:"rank"`
	UserID  string `json:"user_id"`
	Name    string `json:"name,omitempty"`
	TotalXP int64  `json:"total_xp"`
	Level   int    `json:"level"`
	Tier    string `json:"tier"`
}

// HandleStream handles GET /leaderboard/stream?limit=N requests. Each
// coalesced snapshot becomes a "leaderboard" event; idle windows surface as
// "no-data" events so clients can tell a quiet board from a dead stream.
// The subscription is torn down when the client disconnects.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "stream_unsupported", ErrStreamUnsupported)
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > h.maxLimit {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		limit = parsed
	}

	sub, err := h.deps.Subscribe(limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer sub.Unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// Initial comment keeps intermediaries from buffering the response.
	fmt.Fprint(w, ":\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case u, ok := <-sub.Updates:
			if !ok {
				return
			}
			if u.NoData {
				fmt.Fprint(w, "event: no-data\ndata: {}\n\n")
				flusher.Flush()
				continue
			}
			ev := streamEvent{
				Entries: make([]streamEntry, 0, len(u.Entries)),
				Players: u.Players,
				At:      u.At.Format("2006-01-02T15:04:05.000Z07:00"),
			}
			for _, e := range u.Entries {
				ev.Entries = append(ev.Entries, streamEntry{
					Rank:    e.Rank,
					UserID:  e.UserID,
					Name:    e.Name,
					TotalXP: e.TotalXP,
					Level:   e.Level,
					Tier:    string(e.Tier),
				})
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: leaderboard\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
