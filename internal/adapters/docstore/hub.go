package docstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// watchBufferSize bounds each watcher channel. The stream is a latest-state
// feed, not an event log, so a watcher that falls this far behind loses
// intermediate changes and resynchronizes from List.
const watchBufferSize = 256

// hub fans committed changes out to per-collection watchers. Shared by both
// store implementations.
type hub struct {
	mu       sync.Mutex
	watchers map[string]map[string]chan Change // collection -> watcher id -> channel
	closed   bool
}

func newHub() *hub {
	return &hub{watchers: make(map[string]map[string]chan Change)}
}

// watch registers a watcher for collection. The returned cancel is
// idempotent and also runs when ctx is done.
func (h *hub) watch(ctx context.Context, collection string) (<-chan Change, func()) {
	ch := make(chan Change, watchBufferSize)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := uuid.NewString()
	if h.watchers[collection] == nil {
		h.watchers[collection] = make(map[string]chan Change)
	}
	h.watchers[collection][id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if ws, ok := h.watchers[collection]; ok {
				if c, ok := ws[id]; ok {
					delete(ws, id)
					close(c)
				}
			}
			h.mu.Unlock()
		})
	}

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return ch, cancel
}

// broadcast delivers a change to every watcher of its collection without
// blocking: a full watcher misses the change and catches up from List.
func (h *hub) broadcast(ch Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, w := range h.watchers[ch.Collection] {
		select {
		case w <- ch:
		default:
		}
	}
}

// close tears down every watcher.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, ws := range h.watchers {
		for id, c := range ws {
			delete(ws, id)
			close(c)
		}
	}
}
