package domain

import "time"

// Session is short-lived per-interaction state. It is owned by the SessionStore;
// callers only ever receive copies.
type Session struct {
	ID           SessionID
	UserID       UserID
	CreatedAt    Timestamp
	LastAccessed Timestamp

	// Context accumulates workflow outputs (last plan, recipes, list) and the
	// bootstrapped user context.
	Context Values
	// Preferences holds session-local overrides.
	Preferences Values
}

// Clone returns a copy that shares no mutable state with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Context = s.Context.Clone()
	cp.Preferences = s.Preferences.Clone()
	return &cp
}

// Info projects the session to its public shape.
func (s *Session) Info() *SessionInfo {
	return &SessionInfo{
		SessionID:    s.ID,
		UserID:       s.UserID,
		CreatedAt:    s.CreatedAt.Format(time.RFC3339Nano),
		LastAccessed: s.LastAccessed.Format(time.RFC3339Nano),
		Preferences:  s.Preferences.Clone(),
		ContextKeys:  s.Context.Keys(),
	}
}

// Context keys written by the coordinator.
const (
	ContextUserContext      = "user_context"
	ContextPreferences      = "preferences"
	ContextLastMealPlan     = "last_meal_plan"
	ContextLastRecipes      = "last_recipes"
	ContextLastShoppingList = "last_shopping_list"
)
