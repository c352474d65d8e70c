package memorybank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/PabloGalante/mealprep-agent/internal/domain"
	"github.com/PabloGalante/mealprep-agent/internal/observability"
)

// DefaultName is the snapshot name used when none is configured.
const DefaultName = "memory_bank"

// Bank is the durable preference and meal history store. All state lives in
// memory; every mutation writes the complete snapshot to the backend before
// returning.
type Bank struct {
	mu      sync.Mutex
	state   *state
	backend domain.SnapshotStore
	name    string
	obs     *observability.Provider
	now     func() time.Time
}

var _ domain.MemoryBank = (*Bank)(nil)

type Option func(*Bank)

// WithName sets the snapshot name the bank reads and writes.
func WithName(name string) Option {
	return func(b *Bank) {
		if name != "" {
			b.name = name
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Bank) { b.now = now }
}

// New loads the bank from backend. A missing or unreadable snapshot is not
// an error: the bank starts empty and the condition is logged.
func New(ctx context.Context, backend domain.SnapshotStore, obs *observability.Provider, opts ...Option) *Bank {
	if obs == nil {
		obs = observability.Nop()
	}
	b := &Bank{
		state:   newState(),
		backend: backend,
		name:    DefaultName,
		obs:     obs,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.load(ctx)
	return b
}

func (b *Bank) load(ctx context.Context) {
	logger := b.obs.LoggerFromContext(ctx).With("snapshot", b.name)

	data, err := b.backend.Load(ctx, b.name)
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		logger.Info("no memory bank snapshot, starting empty")
		return
	}
	if err != nil {
		logger.Warn("memory bank snapshot unreadable, starting empty", "error", err)
		return
	}

	st, err := decodeState(data)
	if err != nil {
		logger.Warn("memory bank snapshot corrupt, starting empty", "error", err)
		return
	}
	b.state = st
	logger.Info("memory bank loaded",
		"users_with_preferences", len(st.preferences),
		"users_with_history", len(st.history),
	)
}

// flushLocked serialises the full state and saves it. Caller holds mu.
// The in-memory mutation is kept even when the save fails.
func (b *Bank) flushLocked(ctx context.Context) error {
	ctx, span := b.obs.Tracer().Start(ctx, "memorybank.flush")
	defer span.End()
	span.SetAttributes(attribute.String("snapshot", b.name))

	data, err := encodeState(b.state)
	if err == nil {
		err = b.backend.Save(ctx, b.name, data)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "flush failed")
		b.obs.Metrics().FlushError(ctx)
		b.obs.LoggerFromContext(ctx).Error("memory bank flush failed", "snapshot", b.name, "error", err)
		return fmt.Errorf("persist memory bank: %w", err)
	}
	return nil
}

// AddPreference sets the single value stored for (userID, prefType).
func (b *Bank) AddPreference(ctx context.Context, userID domain.UserID, prefType string, value any) error {
	if prefType == "" {
		return fmt.Errorf("%w: empty preference type", domain.ErrInvalidRequest)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.state.preferences[userID] = upsertPreference(b.state.preferences[userID], domain.PreferenceEntry{
		UserID:         userID,
		PreferenceType: prefType,
		Value:          normalizeValue(value),
		CreatedAt:      now,
		LastUpdated:    now,
	})
	return b.flushLocked(ctx)
}

func (b *Bank) GetPreferences(userID domain.UserID) map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]any, len(b.state.preferences[userID]))
	for _, e := range b.state.preferences[userID] {
		out[e.PreferenceType] = e.Value
	}
	return map[string]any(domain.Values(out).Clone())
}

func (b *Bank) GetPreference(userID domain.UserID, prefType string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, e := range b.state.preferences[userID] {
		if e.PreferenceType == prefType {
			return domain.Values{"v": e.Value}.Clone()["v"], true
		}
	}
	return nil, false
}

// AddMealHistory appends plan to the user's history, evicting the oldest
// entry past MaxHistoryPerUser.
func (b *Bank) AddMealHistory(ctx context.Context, userID domain.UserID, plan any, feedback *string) error {
	raw, err := marshalPlan(plan)
	if err != nil {
		return fmt.Errorf("%w: encode meal plan: %v", domain.ErrInvalidRequest, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.state.history[userID]
	date := b.now()
	if n := len(entries); n > 0 && date.Before(entries[n-1].Date) {
		date = entries[n-1].Date
	}
	entries = append(entries, domain.HistoryEntry{
		UserID:   userID,
		Plan:     raw,
		Date:     date,
		Feedback: copyString(feedback),
	})
	if len(entries) > domain.MaxHistoryPerUser {
		entries = append([]domain.HistoryEntry(nil), entries[len(entries)-domain.MaxHistoryPerUser:]...)
	}
	b.state.history[userID] = entries
	return b.flushLocked(ctx)
}

// SetFeedback attaches feedback to the user's most recent history entry.
func (b *Bank) SetFeedback(ctx context.Context, userID domain.UserID, feedback string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.state.history[userID]
	if len(entries) == 0 {
		return domain.ErrNoHistory
	}
	entries[len(entries)-1].Feedback = &feedback
	return b.flushLocked(ctx)
}

// GetMealHistory returns the last limit entries, oldest first. limit <= 0
// returns everything.
func (b *Bank) GetMealHistory(userID domain.UserID, limit int) []domain.HistoryEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.state.history[userID]
	if limit > 0 && limit < len(entries) {
		entries = entries[len(entries)-limit:]
	}
	out := make([]domain.HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = e
		out[i].Plan = append(json.RawMessage(nil), e.Plan...)
		out[i].Feedback = copyString(e.Feedback)
	}
	return out
}

// GetUserContext builds the planner bootstrap context: stored preferences and
// a summary of the most recent history entries.
func (b *Bank) GetUserContext(userID domain.UserID) domain.UserContext {
	recent := b.GetMealHistory(userID, domain.RecentMealsInContext)
	meals := make([]domain.RecentMeal, 0, len(recent))
	for _, e := range recent {
		meals = append(meals, domain.RecentMeal{
			Date:     formatTime(e.Date),
			Meals:    mealsOf(e.Plan),
			Feedback: e.Feedback,
		})
	}
	return domain.UserContext{
		Preferences: b.GetPreferences(userID),
		RecentMeals: meals,
	}
}

func marshalPlan(plan any) (json.RawMessage, error) {
	switch p := plan.(type) {
	case json.RawMessage:
		if !json.Valid(p) {
			return nil, errors.New("invalid JSON")
		}
		return append(json.RawMessage(nil), p...), nil
	case []byte:
		if !json.Valid(p) {
			return nil, errors.New("invalid JSON")
		}
		return append(json.RawMessage(nil), p...), nil
	}
	return json.Marshal(plan)
}

// mealsOf extracts the "meals" list of a stored plan, or an empty list.
func mealsOf(plan json.RawMessage) json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(plan, &fields); err == nil {
		if meals, ok := fields["meals"]; ok && len(meals) > 0 && string(meals) != "null" {
			return append(json.RawMessage(nil), meals...)
		}
	}
	return json.RawMessage("[]")
}

// normalizeValue gives values the shape they will have after a reload, so a
// preference reads the same before and after a restart.
func normalizeValue(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
