package domain

import "context"

// Prompt is a system instruction plus the user content sent to an LLM.
type Prompt struct {
	System string
	User   string
}

// LLMClient defines how the planner talks to a language model.
type LLMClient interface {
	GenerateReply(ctx context.Context, prompt Prompt) (string, error)
}

// SessionStore holds short-lived sessions with idle expiry.
// Operations on an absent or expired id return ErrSessionNotFound.
type SessionStore interface {
	Create(userID UserID, initial Values) (*Session, error)
	Get(id SessionID) (*Session, error)
	UpdateContext(id SessionID, partial Values) error
	UpdatePreferences(id SessionID, partial Values) error
	Delete(id SessionID) bool
	SweepExpired() int
	ListByUser(userID UserID) []*Session
}

// MemoryBank is the durable preference/history store.
type MemoryBank interface {
	AddPreference(ctx context.Context, userID UserID, prefType string, value any) error
	GetPreferences(userID UserID) map[string]any
	GetPreference(userID UserID, prefType string) (any, bool)
	AddMealHistory(ctx context.Context, userID UserID, plan any, feedback *string) error
	SetFeedback(ctx context.Context, userID UserID, feedback string) error
	GetMealHistory(userID UserID, limit int) []HistoryEntry
	GetUserContext(userID UserID) UserContext
}

// SnapshotStore is the durable key-value backend of the memory bank.
// Load returns ErrSnapshotNotFound when nothing was saved under name yet.
// Save must replace the stored document atomically.
type SnapshotStore interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
}

// PlanRequest is the planner's input.
type PlanRequest struct {
	Days         int
	Restrictions []string
	Cuisines     []string
	Budget       *float64
	UserContext  UserContext
}

// Planner suggests meals. Implementations may be slow or fail.
type Planner interface {
	Plan(ctx context.Context, req PlanRequest) (*MealPlan, error)
}

// RecipeFinder looks up a recipe for one meal. A nil recipe with a nil
// error means nothing matched.
type RecipeFinder interface {
	Find(ctx context.Context, meal Meal, restrictions []string) (*Recipe, error)
}

// ListBuilder turns recipes (keyed by meal) into a shopping list.
type ListBuilder interface {
	Build(ctx context.Context, recipes map[string]*Recipe, optimize bool) (*ShoppingList, error)
}

// NutritionEstimator analyses planned meals.
type NutritionEstimator interface {
	Analyze(ctx context.Context, meals []MealWithRecipe) (*NutritionReport, error)
}
