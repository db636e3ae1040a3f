// Package service wires the progression engine together and implements the
// operations the HTTP API depends on: quest completion submission, profile
// writes, achievement re-evaluation and the leaderboard read surface.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/questforge/questforge/internal/adapters/docstore"
	"github.com/questforge/questforge/internal/adapters/journal"
	"github.com/questforge/questforge/internal/adapters/leaderboard"
	"github.com/questforge/questforge/internal/domain/achievement"
	"github.com/questforge/questforge/internal/domain/dedupe"
	"github.com/questforge/questforge/internal/domain/model"
	"github.com/questforge/questforge/internal/domain/quest"
	"github.com/questforge/questforge/internal/domain/rank"
	"github.com/questforge/questforge/pkg/logger"
	"github.com/questforge/questforge/pkg/metrics"
)

// artifactBonusThreshold is the artifact length above which a submission
// earns bonus XP.
const (
	artifactBonusThreshold = 100
	artifactBonusXP        = 50
	artifactMinLength      = 10
)

// SubmitRequest is one quest completion submission.
type SubmitRequest struct {
	UserID   string
	QuestID  string
	Artifact string
}

// UnlockedBadge is a badge granted during a submission or re-evaluation.
type UnlockedBadge struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	XPReward int64  `json:"xpReward"`
}

// Receipt is the outcome of a submission. A re-submission of an already
// completed quest succeeds with XPEarned zero and AlreadyCompleted set.
type Receipt struct {
	UserID           string          `json:"userId"`
	QuestID          string          `json:"questId"`
	XPEarned         int64           `json:"xpEarned"`
	TotalXP          int64           `json:"totalXP"`
	Level            int             `json:"level"`
	Rank             rank.Tier       `json:"rank"`
	AlreadyCompleted bool            `json:"alreadyCompleted,omitempty"`
	UnlockedBadges   []UnlockedBadge `json:"unlockedBadges"`
}

// ProfileUpdate carries the optional non-gamification fields of a profile
// write. Nil means leave the field alone.
type ProfileUpdate struct {
	Name           *string
	PhotoURL       *string
	Bio            *string
	Specialization *string
}

// ProfileResult is the record state after a profile write. Degraded is set
// when the durable store was unreachable and the fields were parked in the
// local cache instead.
type ProfileResult struct {
	Progress model.Progress
	Degraded bool
}

// Service implements the progression engine behind the HTTP API.
type Service struct {
	mu sync.RWMutex

	store        docstore.Store
	catalog      quest.Catalog
	deduper      dedupe.Deduper
	journal      *journal.Journal
	tracker      *leaderboard.Tracker
	achievements *achievement.Engine

	// profileCache holds non-gamification fields that could not be written
	// durably. Never holds XP, level, rank or badges.
	profileCache sync.Map // userID -> ProfileUpdate

	conflictRetries  int
	storeTimeout     time.Duration
	submitTimeout    time.Duration
	journalQueueSize int
	journalWorkers   int
	dedupeSize       int
	snapshotInterval time.Duration
	idleWait         time.Duration
	defaultTopN      int

	started bool
	log     logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects the document store backend. Defaults to the in-memory
// store.
func WithStore(store docstore.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCatalog injects the quest catalog.
func WithCatalog(c quest.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithConflictRetries sets the retry budget for conditional updates.
func WithConflictRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.conflictRetries = n
		}
	}
}

// WithStoreTimeout bounds a single store round-trip.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// WithSubmitTimeout bounds a whole submission, conflict retries included.
func WithSubmitTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.submitTimeout = d
		}
	}
}

// WithJournalQueueSize bounds the completion journal queue.
func WithJournalQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.journalQueueSize = n
		}
	}
}

// WithJournalWorkers sets the journal writer pool size.
func WithJournalWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.journalWorkers = n
		}
	}
}

// WithDedupeSize sets the size of the submission dedupe cache.
func WithDedupeSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dedupeSize = n
		}
	}
}

// WithSnapshotInterval sets the leaderboard snapshot cadence.
func WithSnapshotInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.snapshotInterval = d
		}
	}
}

// WithIdleWait sets the leaderboard subscription idle window.
func WithIdleWait(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.idleWait = d
		}
	}
}

// WithDefaultTopN sets the leaderboard size served when no limit is given.
func WithDefaultTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.defaultTopN = n
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		conflictRetries:  5,
		storeTimeout:     3 * time.Second,
		submitTimeout:    10 * time.Second,
		journalQueueSize: 4096,
		journalWorkers:   runtime.NumCPU(),
		dedupeSize:       50000,
		snapshotInterval: 250 * time.Millisecond,
		idleWait:         5 * time.Second,
		defaultTopN:      50,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the missing components and launches the journal workers and
// the leaderboard tracker.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.log == nil {
		s.log = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = docstore.NewMemoryStore()
		s.log.Info(ctx, "using in-memory document store")
	}
	if s.catalog == nil {
		s.catalog = quest.NewStaticCatalog()
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.achievements = achievement.NewEngine(s.store,
		achievement.WithLogger(s.log),
		achievement.WithMaxRetries(s.conflictRetries),
	)
	s.journal = journal.New(s.store,
		journal.WithQueueSize(s.journalQueueSize),
		journal.WithWorkers(s.journalWorkers),
		journal.WithLogger(s.log),
	)
	s.journal.Start(ctx)

	s.tracker = leaderboard.NewTracker(s.store,
		leaderboard.WithSnapshotInterval(s.snapshotInterval),
		leaderboard.WithIdleWait(s.idleWait),
		leaderboard.WithLogger(s.log),
	)
	if err := s.tracker.Start(ctx); err != nil {
		_ = s.journal.Stop(ctx)
		return fmt.Errorf("start leaderboard: %w", err)
	}

	s.started = true
	s.log.Info(ctx, "progression service started",
		logger.Int("journal_workers", s.journalWorkers),
		logger.Int("journal_queue", s.journalQueueSize),
		logger.Int("dedupe_size", s.dedupeSize),
	)
	return nil
}

// Stop drains the journal, stops the leaderboard loops and closes the
// store.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.log.Info(ctx, "stopping progression service")

	if err := s.journal.Stop(ctx); err != nil {
		s.log.Warn(ctx, "journal drain incomplete", logger.Error(err))
	}
	if err := s.tracker.Close(); err != nil {
		s.log.Warn(ctx, "leaderboard close failed", logger.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.log.Warn(ctx, "store close failed", logger.Error(err))
	}

	s.started = false
	s.log.Info(ctx, "progression service stopped")
}

// SubmitCompletion runs the quest completion transaction of one submission:
// ordered validation, atomic XP award, best-effort journal write and
// synchronous achievement evaluation. Validation order is fixed: missing
// fields, artifact length, quest existence, user existence.
func (s *Service) SubmitCompletion(ctx context.Context, req SubmitRequest) (Receipt, error) {
	start := time.Now()
	defer func() {
		metrics.RecordSubmissionLatency(float64(time.Since(start).Milliseconds()))
	}()

	// Trimming applies to the minimum-length check only; the bonus and the
	// journaled evidence use the artifact exactly as submitted.
	trimmed := strings.TrimSpace(req.Artifact)
	switch {
	case req.UserID == "":
		metrics.RecordSubmissionRejected("missing_user_id")
		return Receipt{}, ErrMissingUserID
	case req.QuestID == "":
		metrics.RecordSubmissionRejected("missing_quest_id")
		return Receipt{}, ErrMissingQuestID
	case trimmed == "":
		metrics.RecordSubmissionRejected("missing_artifact")
		return Receipt{}, ErrMissingArtifact
	case len(trimmed) <= artifactMinLength:
		metrics.RecordSubmissionRejected("artifact_too_short")
		return Receipt{}, ErrArtifactTooShort
	}

	q, err := s.catalog.Get(ctx, req.QuestID)
	if err != nil {
		if errors.Is(err, quest.ErrNotFound) {
			metrics.RecordSubmissionRejected("quest_not_found")
			return Receipt{}, fmt.Errorf("%w: %s", ErrQuestNotFound, req.QuestID)
		}
		return Receipt{}, fmt.Errorf("quest lookup: %w", err)
	}

	xp := q.BaseXP
	if len(req.Artifact) > artifactBonusThreshold {
		xp += artifactBonusXP
	}

	subCtx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	defer cancel()

	now := time.Now().UTC()
	var state model.Progress
	already := false

	_, err = s.store.ConditionalUpdate(subCtx, model.CollectionUsers, req.UserID, func(current []byte) ([]byte, error) {
		already = false
		var p model.Progress
		if err := json.Unmarshal(current, &p); err != nil {
			return nil, fmt.Errorf("decode user record: %w", err)
		}
		if p.HasQuest(req.QuestID) {
			already = true
			state = p
			return nil, docstore.ErrNoChange
		}
		p.TotalXP += xp
		p.AddQuest(req.QuestID)
		p.LastActive = now
		p.Recalculate()
		state = p
		return json.Marshal(&p)
	}, s.conflictRetries)
	if err != nil {
		return Receipt{}, s.mapStoreError(ctx, "submit", req.UserID, err)
	}

	if already {
		metrics.RecordSubmissionDuplicate()
		s.log.Info(ctx, "quest already completed, no re-award",
			logger.String("user_id", req.UserID), logger.String("quest_id", req.QuestID))
		return Receipt{
			UserID:           req.UserID,
			QuestID:          req.QuestID,
			TotalXP:          state.TotalXP,
			Level:            state.Level,
			Rank:             state.Rank,
			AlreadyCompleted: true,
			UnlockedBadges:   []UnlockedBadge{},
		}, nil
	}

	metrics.RecordSubmissionAccepted()
	metrics.RecordXPAwarded(xp)

	if !s.journal.Record(ctx, model.Completion{
		UserID:      req.UserID,
		QuestID:     req.QuestID,
		CompletedAt: now,
		Artifact:    req.Artifact,
		XPEarned:    xp,
	}) {
		s.log.Warn(ctx, "completion evidence not journaled",
			logger.String("user_id", req.UserID), logger.String("quest_id", req.QuestID))
	}

	unlocked := s.achievements.EvaluateAndUnlock(subCtx, req.UserID)
	badges := make([]UnlockedBadge, 0, len(unlocked))
	total := state.TotalXP
	for _, def := range unlocked {
		badges = append(badges, UnlockedBadge{ID: def.ID, Name: def.Name, XPReward: def.XPReward})
		total += def.XPReward
	}

	s.log.Info(ctx, "quest completed",
		logger.String("user_id", req.UserID),
		logger.String("quest_id", req.QuestID),
		logger.Int64("xp_earned", xp),
		logger.Int("badges_unlocked", len(badges)),
	)

	return Receipt{
		UserID:         req.UserID,
		QuestID:        req.QuestID,
		XPEarned:       xp,
		TotalXP:        total,
		Level:          rank.Level(total),
		Rank:           rank.Of(total),
		UnlockedBadges: badges,
	}, nil
}

// EnsureUser returns the user's progression record, creating a
// zero-initialized one on first sight.
func (s *Service) EnsureUser(ctx context.Context, userID string) (model.Progress, error) {
	if userID == "" {
		return model.Progress{}, ErrMissingUserID
	}
	opCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	doc, err := s.store.Get(opCtx, model.CollectionUsers, userID)
	if err == nil {
		var p model.Progress
		if uerr := json.Unmarshal(doc.Data, &p); uerr != nil {
			return model.Progress{}, fmt.Errorf("decode user record: %w", uerr)
		}
		p.Recalculate()
		s.overlayProfile(&p)
		return p, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return model.Progress{}, s.mapStoreError(ctx, "ensure user", userID, err)
	}

	p := model.NewProgress(userID, time.Now().UTC())
	data, err := json.Marshal(p)
	if err != nil {
		return model.Progress{}, fmt.Errorf("encode user record: %w", err)
	}
	if _, err := s.store.Put(opCtx, model.CollectionUsers, userID, data); err != nil {
		return model.Progress{}, s.mapStoreError(ctx, "create user", userID, err)
	}
	s.log.Info(ctx, "user record created", logger.String("user_id", userID))
	return *p, nil
}

// GetProgress returns the user's current progression record.
func (s *Service) GetProgress(ctx context.Context, userID string) (model.Progress, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	doc, err := s.store.Get(opCtx, model.CollectionUsers, userID)
	if err != nil {
		return model.Progress{}, s.mapStoreError(ctx, "get user", userID, err)
	}
	var p model.Progress
	if err := json.Unmarshal(doc.Data, &p); err != nil {
		return model.Progress{}, fmt.Errorf("decode user record: %w", err)
	}
	p.Recalculate()
	s.overlayProfile(&p)
	return p, nil
}

// UpdateProfile writes non-gamification profile fields. The durable store
// is the primary tier; when it is unreachable the fields are parked in a
// local cache and the result is marked degraded. XP, level, rank and badge
// state never take this path.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (ProfileResult, error) {
	if userID == "" {
		return ProfileResult{}, ErrMissingUserID
	}

	opCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	merged := s.mergePending(userID, upd)

	var state model.Progress
	_, err := s.store.ConditionalUpdate(opCtx, model.CollectionUsers, userID, func(current []byte) ([]byte, error) {
		var p model.Progress
		if err := json.Unmarshal(current, &p); err != nil {
			return nil, fmt.Errorf("decode user record: %w", err)
		}
		applyProfile(&p, merged)
		p.Recalculate()
		state = p
		return json.Marshal(&p)
	}, s.conflictRetries)
	if err == nil {
		s.profileCache.Delete(userID)
		return ProfileResult{Progress: state}, nil
	}

	mapped := s.mapStoreError(ctx, "update profile", userID, err)
	if !errors.Is(mapped, ErrTimeout) && !errors.Is(mapped, ErrUnavailable) {
		return ProfileResult{}, mapped
	}

	// Degraded tier: park the fields locally and surface the merged view.
	s.profileCache.Store(userID, merged)
	s.log.Warn(ctx, "profile write degraded to local cache",
		logger.String("user_id", userID), logger.Error(err))

	p := model.Progress{UserID: userID}
	applyProfile(&p, merged)
	return ProfileResult{Progress: p, Degraded: true}, nil
}

// overlayProfile applies any locally parked profile fields to a loaded
// record so callers read their own degraded writes.
func (s *Service) overlayProfile(p *model.Progress) {
	if pending, ok := s.profileCache.Load(p.UserID); ok {
		applyProfile(p, pending.(ProfileUpdate))
	}
}

// mergePending folds upd over any fields already parked for the user.
func (s *Service) mergePending(userID string, upd ProfileUpdate) ProfileUpdate {
	pending, ok := s.profileCache.Load(userID)
	if !ok {
		return upd
	}
	merged := pending.(ProfileUpdate)
	if upd.Name != nil {
		merged.Name = upd.Name
	}
	if upd.PhotoURL != nil {
		merged.PhotoURL = upd.PhotoURL
	}
	if upd.Bio != nil {
		merged.Bio = upd.Bio
	}
	if upd.Specialization != nil {
		merged.Specialization = upd.Specialization
	}
	return merged
}

func applyProfile(p *model.Progress, upd ProfileUpdate) {
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.PhotoURL != nil {
		p.PhotoURL = *upd.PhotoURL
	}
	if upd.Bio != nil {
		p.Bio = *upd.Bio
	}
	if upd.Specialization != nil {
		p.Specialization = *upd.Specialization
	}
}

// EvaluateAchievements re-checks the badge catalog for a user. Safe to call
// repeatedly; already unlocked badges are never re-awarded.
func (s *Service) EvaluateAchievements(ctx context.Context, userID string) ([]UnlockedBadge, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	if _, err := s.GetProgress(ctx, userID); err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	unlocked := s.achievements.EvaluateAndUnlock(opCtx, userID)
	out := make([]UnlockedBadge, 0, len(unlocked))
	for _, def := range unlocked {
		out = append(out, UnlockedBadge{ID: def.ID, Name: def.Name, XPReward: def.XPReward})
	}
	return out, nil
}

// TopN returns the top n leaderboard rows; n <= 0 means the default size.
func (s *Service) TopN(ctx context.Context, n int) ([]model.Entry, error) {
	if n <= 0 {
		n = s.defaultTopN
	}
	return s.tracker.TopN(ctx, n)
}

// Rank returns one user's leaderboard row.
func (s *Service) Rank(ctx context.Context, userID string) (model.Entry, error) {
	return s.tracker.Rank(ctx, userID)
}

// Nearby returns the user's row plus up to window positions on each side.
func (s *Service) Nearby(ctx context.Context, userID string, window int) ([]model.Entry, error) {
	return s.tracker.Nearby(ctx, userID, window)
}

// Subscribe opens a push subscription on the leaderboard.
func (s *Service) Subscribe(limit int) (*leaderboard.Subscription, error) {
	if limit <= 0 {
		limit = s.defaultTopN
	}
	return s.tracker.Subscribe(limit)
}

// Quests returns the quest catalog.
func (s *Service) Quests(ctx context.Context) []model.Quest {
	return s.catalog.List(ctx)
}

// Quest returns one quest definition.
func (s *Service) Quest(ctx context.Context, id string) (model.Quest, error) {
	q, err := s.catalog.Get(ctx, id)
	if err != nil {
		if errors.Is(err, quest.ErrNotFound) {
			return model.Quest{}, fmt.Errorf("%w: %s", ErrQuestNotFound, id)
		}
		return model.Quest{}, err
	}
	return q, nil
}

// SeenAndRecord atomically checks and records a submission id.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordSubmissionDuplicate()
	}
	return seen
}

// Unrecord forgets a submission id so the request can be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":        s.started,
		"journalWorkers": s.journalWorkers,
		"journalQueue":   s.journalQueueSize,
		"dedupeSize":     s.dedupeSize,
	}
	if s.started {
		players := s.tracker.Count(ctx)
		stats["players"] = players
		stats["journalDepth"] = s.journal.Depth()
		stats["dedupeEntries"] = s.deduper.Size()
		metrics.UpdateLeaderboardPlayers(players)
		metrics.UpdateJournalQueueDepth(s.journal.Depth())
	}
	return stats
}

// mapStoreError translates docstore failures into the service taxonomy.
func (s *Service) mapStoreError(ctx context.Context, op, userID string, err error) error {
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	case errors.Is(err, docstore.ErrConflict):
		metrics.RecordStoreConflict()
		s.log.Warn(ctx, "conditional update exhausted retries",
			logger.String("op", op), logger.String("user_id", userID))
		return fmt.Errorf("%w: %s", ErrConflict, op)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s", ErrTimeout, op)
	case errors.Is(err, docstore.ErrUnavailable), errors.Is(err, docstore.ErrClosed):
		return fmt.Errorf("%w: %s", ErrUnavailable, op)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
