package leaderboard

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/questforge/questforge/internal/domain/model"
	"github.com/questforge/questforge/pkg/metrics"
)

// Update is one push to a subscriber. When NoData is set the board has not
// changed for the idle window and Entries is empty; the signal lets a
// transport tell a quiet stream apart from a dead one.
type Update struct {
	Entries []model.Entry
	Players int
	NoData  bool
	At      time.Time
}

// Subscription is a live feed of leaderboard updates. Updates is closed by
// Unsubscribe or Tracker.Close. The channel carries at most the latest
// update; a slow consumer sees the newest state, not every intermediate one.
type Subscription struct {
	ID      string
	Updates <-chan Update

	tracker *Tracker
}

// Unsubscribe tears the feed down and closes Updates. Safe to call twice.
func (s *Subscription) Unsubscribe() {
	s.tracker.unsubscribe(s.ID)
}

type subscriber struct {
	id      string
	limit   int
	updates chan Update
	notify  chan struct{}
	done    chan struct{}
	once    sync.Once
}

// wake signals the subscriber loop that a fresh snapshot exists. Never
// blocks; repeated wakes before the loop runs collapse into one.
func (s *subscriber) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

// Subscribe registers a push subscriber that receives the top limit rows
// whenever a new snapshot is published, plus a NoData update after each
// idle window with no change. The first update is delivered immediately
// from the latest snapshot.
func (t *Tracker) Subscribe(limit int) (*Subscription, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	select {
	case <-t.stop:
		return nil, ErrClosed
	default:
	}

	sub := &subscriber{
		id:      uuid.NewString(),
		limit:   limit,
		updates: make(chan Update, 1),
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	t.subMu.Lock()
	t.subs[sub.id] = sub
	n := len(t.subs)
	t.subMu.Unlock()
	metrics.UpdateLeaderboardSubscribers(n)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.run(sub)
	}()
	sub.wake()

	return &Subscription{ID: sub.id, Updates: sub.updates, tracker: t}, nil
}

func (t *Tracker) unsubscribe(id string) {
	t.subMu.Lock()
	sub, ok := t.subs[id]
	if ok {
		delete(t.subs, id)
	}
	n := len(t.subs)
	t.subMu.Unlock()

	if ok {
		sub.close()
		metrics.UpdateLeaderboardSubscribers(n)
	}
}

// run is the per-subscriber delivery loop. It converts snapshot wakes into
// coalesced updates and emits a NoData update when the idle window elapses
// without a wake.
func (t *Tracker) run(sub *subscriber) {
	defer close(sub.updates)

	idle := time.NewTimer(t.idleWait)
	defer idle.Stop()

	for {
		select {
		case <-sub.done:
			return
		case <-t.stop:
			return
		case <-sub.notify:
			snap := t.snapshot.Load()
			top := snap.TopCache
			if len(top) > sub.limit {
				top = top[:sub.limit]
			}
			deliver(sub, Update{Entries: top, Players: snap.Players, At: snap.BuiltAt})
			resetTimer(idle, t.idleWait)
		case <-idle.C:
			deliver(sub, Update{NoData: true, At: time.Now().UTC()})
			idle.Reset(t.idleWait)
		}
	}
}

// deliver replaces any undelivered update so the consumer always sees the
// newest state.
func deliver(sub *subscriber, u Update) {
	for {
		select {
		case sub.updates <- u:
			return
		default:
			select {
			case <-sub.updates:
			default:
			}
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
