// Package achievement evaluates badge conditions against a user's
// progression record and unlocks any badges the user has newly earned.
package achievement

// Stats is the immutable snapshot of a user's progression that badge
// conditions are evaluated against. All badges in a single evaluation
// pass see the same snapshot, so an XP reward granted by one badge
// never triggers another badge in the same pass.
type Stats struct {
	QuestsCompleted int
	TotalXP         int64
	Streak          int
}

// Definition describes a single unlockable badge.
type Definition struct {
	ID          string
	Name        string
	Description string
	Icon        string
	XPReward    int64
	Condition   func(Stats) bool
}

// DefaultCatalog returns the built-in badge set.
func DefaultCatalog() []Definition {
	return []Definition{
		{
			ID:          "first-step",
			Name:        "First Step",
			Description: "Complete your first quest",
			Icon:        "footprints",
			XPReward:    50,
			Condition:   func(s Stats) bool { return s.QuestsCompleted >= 1 },
		},
		{
			ID:          "10-quest-club",
			Name:        "10 Quest Club",
			Description: "Complete 10 quests",
			Icon:        "trophy",
			XPReward:    100,
			Condition:   func(s Stats) bool { return s.QuestsCompleted >= 10 },
		},
		{
			ID:          "speed-demon",
			Name:        "Speed Demon",
			Description: "Complete 5 quests",
			Icon:        "zap",
			XPReward:    75,
			Condition:   func(s Stats) bool { return s.QuestsCompleted >= 5 },
		},
		{
			ID:          "100-xp",
			Name:        "Centurion",
			Description: "Earn 100 total XP",
			Icon:        "star",
			XPReward:    0,
			Condition:   func(s Stats) bool { return s.TotalXP >= 100 },
		},
		{
			ID:          "7-day-streak",
			Name:        "Week Warrior",
			Description: "Keep a 7 day streak",
			Icon:        "flame",
			XPReward:    200,
			Condition:   func(s Stats) bool { return s.Streak >= 7 },
		},
	}
}
