// Package model contains the document and DTO types passed between layers.
package model

import (
	"time"

	"github.com/questforge/questforge/internal/domain/rank"
)

// Document store collections used by the progression engine.
const (
	CollectionUsers       = "users"
	CollectionCompletions = "completions"
)

// Badge is one unlocked badge inside a progression record. The badges
// sequence is append-only and badge ids are unique within it.
type Badge struct {
	BadgeID    string    `json:"badgeId"`
	UnlockedAt time.Time `json:"unlockedAt"`
}

// Progress is the durable per-user progression record. It is stored as a
// JSON document in the "users" collection, keyed by user id. Level and Rank
// are derived caches over TotalXP; Recalculate refreshes them and every
// load/write path calls it.
type Progress struct {
	UserID          string    `json:"userId"`
	Name            string    `json:"name,omitempty"`
	Email           string    `json:"email,omitempty"`
	PhotoURL        string    `json:"photoURL,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	Specialization  string    `json:"specialization,omitempty"`
	TotalXP         int64     `json:"totalXP"`
	Level           int       `json:"level"`
	Rank            rank.Tier `json:"rank"`
	QuestsCompleted []string  `json:"questsCompleted"`
	Streak          int       `json:"streak"`
	LongestStreak   int       `json:"longestStreak"`
	Badges          []Badge   `json:"badges"`
	Coins           int64     `json:"coins"`
	LastActive      time.Time `json:"lastActive"`
	CreatedAt       time.Time `json:"createdAt"`
}

// NewProgress returns a zero-initialized record for a first-seen user.
func NewProgress(userID string, now time.Time) *Progress {
	p := &Progress{
		UserID:          userID,
		QuestsCompleted: []string{},
		Badges:          []Badge{},
		CreatedAt:       now,
		LastActive:      now,
	}
	p.Recalculate()
	return p
}

// Recalculate refreshes the derived Level and Rank fields from TotalXP.
func (p *Progress) Recalculate() {
	p.Level = rank.Level(p.TotalXP)
	p.Rank = rank.Of(p.TotalXP)
}

// HasQuest reports whether questID is in the completed set.
func (p *Progress) HasQuest(questID string) bool {
	for _, id := range p.QuestsCompleted {
		if id == questID {
			return true
		}
	}
	return false
}

// AddQuest adds questID to the completed set. Adding an existing id is a
// no-op; the set never holds duplicates.
func (p *Progress) AddQuest(questID string) bool {
	if p.HasQuest(questID) {
		return false
	}
	p.QuestsCompleted = append(p.QuestsCompleted, questID)
	return true
}

// HasBadge reports whether badgeID is already unlocked.
func (p *Progress) HasBadge(badgeID string) bool {
	for _, b := range p.Badges {
		if b.BadgeID == badgeID {
			return true
		}
	}
	return false
}

// Quest is an immutable quest definition; read-only to this service.
type Quest struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
	BaseXP      int64  `json:"baseXP"`
	Category    string `json:"category,omitempty"`
}

// Completion is the durable evidence a quest was completed: one record per
// (user, quest) pair, written best-effort after the XP transaction commits.
type Completion struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	QuestID     string    `json:"questId"`
	CompletedAt time.Time `json:"completedAt"`
	Artifact    string    `json:"submittedArtifact"`
	XPEarned    int64     `json:"xpEarned"`
}

// Entry is one leaderboard row. Tied TotalXP values share a rank number.
type Entry struct {
	Rank    int       `json:"rank"`
	UserID  string    `json:"user_id"`
	Name    string    `json:"name,omitempty"`
	TotalXP int64     `json:"total_xp"`
	Level   int       `json:"level"`
	Tier    rank.Tier `json:"tier"`
}
