package achievement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/questforge/questforge/internal/adapters/docstore"
	"github.com/questforge/questforge/internal/domain/model"
	"github.com/questforge/questforge/pkg/logger"
	"github.com/questforge/questforge/pkg/metrics"
)

const defaultMaxRetries = 5

// Engine checks a user's progression against the badge catalog and
// persists any newly earned badges.
type Engine struct {
	store   docstore.Store
	catalog []Definition
	retries int
	log     logger.Logger
}

// Option configures the engine.
type Option func(*Engine)

// WithCatalog replaces the default badge catalog.
func WithCatalog(defs []Definition) Option {
	return func(e *Engine) {
		if len(defs) > 0 {
			e.catalog = defs
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l.Named("achievement")
		}
	}
}

// WithMaxRetries sets the conflict retry budget for badge writes.
func WithMaxRetries(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.retries = n
		}
	}
}

// NewEngine builds an engine over the given store.
func NewEngine(store docstore.Store, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		catalog: DefaultCatalog(),
		retries: defaultMaxRetries,
		log:     logger.Get().Named("achievement"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the badge definitions the engine evaluates.
func (e *Engine) Catalog() []Definition {
	out := make([]Definition, len(e.catalog))
	copy(out, e.catalog)
	return out
}

// EvaluateAndUnlock loads the user's record, snapshots its stats once and
// unlocks every badge whose condition the snapshot satisfies. Each unlock
// is a separate conditional update that appends the badge and credits its
// XP reward. Because conditions are checked against the initial snapshot,
// reward XP from one badge never unlocks another in the same pass.
//
// Evaluation is best effort: if the record cannot be loaded, or an
// individual badge write keeps conflicting, the failure is logged and the
// remaining badges are still attempted. The returned slice only holds
// badges whose writes committed.
func (e *Engine) EvaluateAndUnlock(ctx context.Context, userID string) []Definition {
	doc, err := e.store.Get(ctx, model.CollectionUsers, userID)
	if err != nil {
		e.log.Warn(ctx, "achievement evaluation skipped, user record unavailable",
			logger.String("user_id", userID), logger.Error(err))
		metrics.RecordErrorByComponent("achievement", "load_failed")
		return nil
	}

	var p model.Progress
	if err := json.Unmarshal(doc.Data, &p); err != nil {
		e.log.Error(ctx, "achievement evaluation skipped, corrupt user record",
			logger.String("user_id", userID), logger.Error(err))
		metrics.RecordErrorByComponent("achievement", "decode_failed")
		return nil
	}

	stats := Stats{
		QuestsCompleted: len(p.QuestsCompleted),
		TotalXP:         p.TotalXP,
		Streak:          p.Streak,
	}

	var unlocked []Definition
	for _, def := range e.catalog {
		if p.HasBadge(def.ID) || !def.Condition(stats) {
			continue
		}
		committed, err := e.unlock(ctx, userID, def)
		if err != nil {
			e.log.Warn(ctx, "badge unlock failed",
				logger.String("user_id", userID),
				logger.String("badge_id", def.ID),
				logger.Error(err))
			metrics.RecordErrorByComponent("achievement", "unlock_failed")
			continue
		}
		if !committed {
			// Another evaluation pass got there first.
			continue
		}
		unlocked = append(unlocked, def)
		metrics.RecordBadgeUnlocked(def.ID)
		if def.XPReward > 0 {
			metrics.RecordXPAwarded(def.XPReward)
		}
		e.log.Info(ctx, "badge unlocked",
			logger.String("user_id", userID),
			logger.String("badge_id", def.ID),
			logger.Int64("xp_reward", def.XPReward))
	}
	return unlocked
}

// unlock appends def to the user's badge list and credits its XP reward
// under optimistic concurrency. The mutate function re-checks badge
// presence on every retry so a concurrent unlock of the same badge
// collapses to a no-op instead of a duplicate award; committed reports
// whether this call actually wrote the badge.
func (e *Engine) unlock(ctx context.Context, userID string, def Definition) (committed bool, err error) {
	now := time.Now().UTC()
	_, err = e.store.ConditionalUpdate(ctx, model.CollectionUsers, userID, func(current []byte) ([]byte, error) {
		committed = false
		var p model.Progress
		if err := json.Unmarshal(current, &p); err != nil {
			return nil, fmt.Errorf("decode user record: %w", err)
		}
		if p.HasBadge(def.ID) {
			return nil, docstore.ErrNoChange
		}
		p.Badges = append(p.Badges, model.Badge{BadgeID: def.ID, UnlockedAt: now})
		p.TotalXP += def.XPReward
		p.Recalculate()
		committed = true
		return json.Marshal(&p)
	}, e.retries)
	if err != nil {
		return false, err
	}
	return committed, nil
}
