// Package leaderboard maintains the ranked read model over user progression
// records. It bootstraps from the document store, follows the store's change
// feed, and publishes immutable snapshots on a fixed cadence for push
// subscribers. Ranking orders by total XP descending with user id ascending
// as the tie order; tied XP values share a rank number.
package leaderboard

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/questforge/questforge/internal/adapters/docstore"
	"github.com/questforge/questforge/internal/domain/model"
	"github.com/questforge/questforge/internal/domain/rank"
	"github.com/questforge/questforge/pkg/logger"
	"github.com/questforge/questforge/pkg/metrics"
)

const (
	defaultSnapshotInterval = 250 * time.Millisecond
	defaultIdleWait         = 5 * time.Second
	defaultTopCacheSize     = 100
)

type record struct {
	xp   int64
	name string
}

// Snapshot is an immutable view of the ranked board at one instant.
type Snapshot struct {
	// TopCache holds the first topCacheSize rows, ranks assigned.
	TopCache []model.Entry
	// RankByUser maps every tracked user to their shared-tie rank.
	RankByUser map[string]int
	Players    int
	BuiltAt    time.Time
}

// Tracker is the in-memory ranked store plus its feed and publish loops.
type Tracker struct {
	store docstore.Store
	log   logger.Logger

	mu   sync.RWMutex
	root *node
	byID map[string]record

	snapshot atomic.Pointer[Snapshot]
	pending  atomic.Int64

	subMu sync.Mutex
	subs  map[string]*subscriber

	snapshotInterval time.Duration
	idleWait         time.Duration
	topCacheSize     int

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewTracker builds a tracker over the given document store. Call Start to
// bootstrap and begin following changes.
func NewTracker(store docstore.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:            store,
		log:              logger.Get().Named("leaderboard"),
		byID:             make(map[string]record),
		subs:             make(map[string]*subscriber),
		snapshotInterval: defaultSnapshotInterval,
		idleWait:         defaultIdleWait,
		topCacheSize:     defaultTopCacheSize,
		stop:             make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.snapshot.Store(&Snapshot{RankByUser: map[string]int{}, BuiltAt: time.Now().UTC()})
	return t
}

// Start loads every user record, publishes the first snapshot and launches
// the change-feed consumer and the snapshot ticker. The loops stop when ctx
// is done or Close is called.
func (t *Tracker) Start(ctx context.Context) error {
	docs, err := t.store.List(ctx, model.CollectionUsers)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		var p model.Progress
		if err := json.Unmarshal(doc.Data, &p); err != nil {
			t.log.Warn(ctx, "skipping unreadable user record during bootstrap",
				logger.String("key", doc.Key), logger.Error(err))
			continue
		}
		t.apply(&p)
	}
	t.pending.Store(0)
	t.publish()

	changes, cancel := t.store.Watch(ctx, model.CollectionUsers)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer cancel()
		t.consume(ctx, changes)
	}()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.publishLoop(ctx)
	}()

	t.log.Info(ctx, "leaderboard started", logger.Int("players", len(docs)))
	return nil
}

// Close stops the feed and publish loops and tears down all subscriptions.
func (t *Tracker) Close() error {
	t.stopOnce.Do(func() { close(t.stop) })
	t.wg.Wait()

	t.subMu.Lock()
	for id, sub := range t.subs {
		sub.close()
		delete(t.subs, id)
	}
	t.subMu.Unlock()
	metrics.UpdateLeaderboardSubscribers(0)
	return nil
}

func (t *Tracker) consume(ctx context.Context, changes <-chan docstore.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			var p model.Progress
			if err := json.Unmarshal(change.Document.Data, &p); err != nil {
				t.log.Warn(ctx, "dropping unreadable change",
					logger.String("key", change.Key), logger.Error(err))
				continue
			}
			t.apply(&p)
			metrics.RecordLeaderboardUpdate()
		}
	}
}

// apply upserts one user's row and marks the board dirty when it changed.
func (t *Tracker) apply(p *model.Progress) {
	t.mu.Lock()
	old, exists := t.byID[p.UserID]
	if exists && old.xp == p.TotalXP && old.name == p.Name {
		t.mu.Unlock()
		return
	}
	if exists && old.xp != p.TotalXP {
		t.root = remove(t.root, p.UserID, old.xp)
		t.root = insert(t.root, p.UserID, p.TotalXP)
	} else if !exists {
		t.root = insert(t.root, p.UserID, p.TotalXP)
	}
	t.byID[p.UserID] = record{xp: p.TotalXP, name: p.Name}
	players := len(t.byID)
	t.mu.Unlock()

	t.pending.Add(1)
	metrics.UpdateLeaderboardPlayers(players)
}

// publishLoop rebuilds the snapshot on a fixed cadence, but only when at
// least one change arrived since the last publish. A burst of changes
// inside one interval coalesces into a single snapshot.
func (t *Tracker) publishLoop(ctx context.Context) {
	ticker := time.NewTicker(t.snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-ticker.C:
			n := t.pending.Swap(0)
			if n == 0 {
				continue
			}
			t.publish()
			for i := int64(1); i < n; i++ {
				metrics.RecordSnapshotCoalesced()
			}
		}
	}
}

// publish rebuilds the snapshot from the live tree and notifies subscribers.
func (t *Tracker) publish() {
	start := time.Now()

	t.mu.RLock()
	entries := t.entriesLocked(0, nsize(t.root))
	t.mu.RUnlock()

	assignSharedRanks(entries)

	rankByUser := make(map[string]int, len(entries))
	for _, e := range entries {
		rankByUser[e.UserID] = e.Rank
	}
	top := entries
	if len(top) > t.topCacheSize {
		top = top[:t.topCacheSize]
	}

	t.snapshot.Store(&Snapshot{
		TopCache:   top,
		RankByUser: rankByUser,
		Players:    len(entries),
		BuiltAt:    time.Now().UTC(),
	})

	metrics.RecordSnapshotRebuildLatency(float64(time.Since(start).Milliseconds()))
	metrics.RecordSnapshotPublished()

	t.subMu.Lock()
	for _, sub := range t.subs {
		sub.wake()
	}
	t.subMu.Unlock()
}

// entriesLocked materializes limit rows starting at offset, without ranks.
// Caller holds at least a read lock.
func (t *Tracker) entriesLocked(offset, limit int) []model.Entry {
	nodes := slice(t.root, offset, limit)
	out := make([]model.Entry, 0, len(nodes))
	for _, nd := range nodes {
		rec := t.byID[nd.userID]
		out = append(out, model.Entry{
			UserID:  nd.userID,
			Name:    rec.name,
			TotalXP: nd.xp,
			Level:   rank.Level(nd.xp),
			Tier:    rank.Of(nd.xp),
		})
	}
	return out
}

// TopN returns the first n rows of the live board.
func (t *Tracker) TopN(ctx context.Context, n int) ([]model.Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	t.mu.RLock()
	entries := t.entriesLocked(0, n)
	t.mu.RUnlock()

	assignSharedRanks(entries)
	return entries, nil
}

// Rank returns the row for one user, ErrNotFound if untracked.
func (t *Tracker) Rank(ctx context.Context, userID string) (model.Entry, error) {
	t.mu.RLock()
	rec, ok := t.byID[userID]
	if !ok {
		t.mu.RUnlock()
		return model.Entry{}, ErrNotFound
	}
	pos := position(t.root, userID, rec.xp)
	entries := t.entriesLocked(pos, 1)
	base := sharedRankAt(t.root, pos)
	t.mu.RUnlock()

	if len(entries) == 0 {
		return model.Entry{}, ErrNotFound
	}
	entries[0].Rank = base
	return entries[0], nil
}

// Nearby returns the user's row plus up to window ranked positions on each
// side, in board order.
func (t *Tracker) Nearby(ctx context.Context, userID string, window int) ([]model.Entry, error) {
	if window < 0 {
		window = 0
	}
	t.mu.RLock()
	rec, ok := t.byID[userID]
	if !ok {
		t.mu.RUnlock()
		return nil, ErrNotFound
	}
	pos := position(t.root, userID, rec.xp)
	start := pos - window
	if start < 0 {
		start = 0
	}
	entries := t.entriesLocked(start, pos-start+window+1)
	base := sharedRankAt(t.root, start)
	t.mu.RUnlock()

	rankSlice(entries, base)
	return entries, nil
}

// Count returns the number of tracked users.
func (t *Tracker) Count(ctx context.Context) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID)
}

// Latest returns the most recently published snapshot.
func (t *Tracker) Latest() *Snapshot {
	return t.snapshot.Load()
}

// sharedRankAt walks the first idx+1 rows and returns the shared-tie rank
// of the row at zero-based index idx. Caller holds at least a read lock.
func sharedRankAt(root *node, idx int) int {
	currentRank := 0
	var lastXP int64
	i := 0
	walk(root, func(nd *node) bool {
		if i == 0 || nd.xp != lastXP {
			currentRank++
		}
		lastXP = nd.xp
		i++
		return i <= idx
	})
	return currentRank
}

// rankSlice assigns shared-tie ranks to a contiguous board slice whose
// first row holds rank base.
func rankSlice(entries []model.Entry, base int) {
	for i := range entries {
		if i == 0 {
			entries[i].Rank = base
		} else if entries[i].TotalXP == entries[i-1].TotalXP {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = entries[i-1].Rank + 1
		}
	}
}

// assignSharedRanks gives tied XP values one shared rank number, with the
// next distinct value taking the next consecutive rank.
func assignSharedRanks(entries []model.Entry) {
	currentRank := 0
	for i := range entries {
		if i == 0 || entries[i].TotalXP != entries[i-1].TotalXP {
			currentRank++
		}
		entries[i].Rank = currentRank
	}
}
