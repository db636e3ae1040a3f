// Package quest provides the read-only quest definition catalog.
package quest

import (
	"context"
	"sort"

	"github.com/questforge/questforge/internal/domain/model"
)

// Catalog exposes immutable quest definitions.
type Catalog interface {
	// Get returns the quest with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (model.Quest, error)

	// List returns every quest, ordered by id.
	List(ctx context.Context) []model.Quest
}

// Option applies a configuration option to the static catalog.
type Option func(*StaticCatalog)

// WithQuests replaces the default quest set.
func WithQuests(quests []model.Quest) Option {
	return func(c *StaticCatalog) {
		if len(quests) > 0 {
			c.byID = make(map[string]model.Quest, len(quests))
			for _, q := range quests {
				c.byID[q.ID] = q
			}
		}
	}
}

// StaticCatalog is an in-memory, immutable-after-construction Catalog.
type StaticCatalog struct {
	byID map[string]model.Quest
}

// NewStaticCatalog builds a catalog seeded with the default quest set unless
// overridden via options.
func NewStaticCatalog(opts ...Option) *StaticCatalog {
	c := &StaticCatalog{byID: make(map[string]model.Quest, len(defaultQuests))}
	for _, q := range defaultQuests {
		c.byID[q.ID] = q
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get implements Catalog.
func (c *StaticCatalog) Get(ctx context.Context, id string) (model.Quest, error) {
	q, ok := c.byID[id]
	if !ok {
		return model.Quest{}, ErrNotFound
	}
	return q, nil
}

// List implements Catalog.
func (c *StaticCatalog) List(ctx context.Context) []model.Quest {
	out := make([]model.Quest, 0, len(c.byID))
	for _, q := range c.byID {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// defaultQuests is the stock learning-track catalog.
var defaultQuests = []model.Quest{
	{ID: "counter-app", Title: "Build a Counter App", Description: "Create a simple counter with increment, decrement, and reset actions, keeping the count in component state.", Difficulty: "Easy", BaseXP: 100, Category: "UI Basics"},
	{ID: "hooks-tutorial", Title: "Component Hooks Tutorial", Description: "Implement state, effect, and context hooks in a component that fetches data and renders proper loading states.", Difficulty: "Easy", BaseXP: 100, Category: "UI Basics"},
	{ID: "todo-list", Title: "Build a TODO List", Description: "Create a functional TODO list with add, delete, and mark-complete features, persisted in local storage.", Difficulty: "Medium", BaseXP: 150, Category: "Web Development"},
	{ID: "search-filter", Title: "Implement a Search Filter", Description: "Build a searchable list that filters items in real time as the user types, with input debouncing.", Difficulty: "Medium", BaseXP: 150, Category: "JavaScript"},
	{ID: "custom-hook", Title: "Create a Custom Hook", Description: "Design a reusable form-validation hook that handles multiple fields and validation rules.", Difficulty: "Medium", BaseXP: 200, Category: "UI Advanced"},
	{ID: "weather-app", Title: "Build a Weather App", Description: "Fetch data from a public weather API and display current conditions with loading and error states.", Difficulty: "Medium", BaseXP: 200, Category: "API Integration"},
	{ID: "auth-flow", Title: "Implement an Authentication Flow", Description: "Build login, signup, and protected routes backed by an identity provider.", Difficulty: "Hard", BaseXP: 300, Category: "Authentication"},
	{ID: "drag-and-drop", Title: "Create a Drag and Drop Interface", Description: "Implement drag-and-drop sorting of items using the native drag events.", Difficulty: "Hard", BaseXP: 250, Category: "UI/UX"},
	{ID: "realtime-chat", Title: "Build a Real-time Chat", Description: "Create a chat with live message delivery, typing indicators, and timestamps.", Difficulty: "Hard", BaseXP: 350, Category: "Real-time Apps"},
	{ID: "state-management", Title: "Implement State Management", Description: "Build an app around a central store with async actions and selectors.", Difficulty: "Hard", BaseXP: 300, Category: "State Management"},
}
