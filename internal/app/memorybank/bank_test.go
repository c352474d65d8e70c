package memorybank_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/mealprep-agent/internal/adapters/storage/file"
	"github.com/PabloGalante/mealprep-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/mealprep-agent/internal/app/memorybank"
	"github.com/PabloGalante/mealprep-agent/internal/domain"
	"github.com/PabloGalante/mealprep-agent/internal/observability"
)

// flakyBackend wraps a snapshot store and fails saves on demand.
type flakyBackend struct {
	*memory.SnapshotStore
	mu    sync.Mutex
	fail  bool
	saves int
}

func (f *flakyBackend) Save(ctx context.Context, name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.fail {
		return errors.New("disk full")
	}
	return f.SnapshotStore.Save(ctx, name, data)
}

func newBank(t *testing.T, backend domain.SnapshotStore) *memorybank.Bank {
	t.Helper()
	return memorybank.New(context.Background(), backend, observability.Nop())
}

func TestAddPreference_Upserts(t *testing.T) {
	ctx := context.Background()
	backend := &flakyBackend{SnapshotStore: memory.NewSnapshotStore()}
	bank := newBank(t, backend)

	require.NoError(t, bank.AddPreference(ctx, "u", domain.PrefBudget, 50))
	require.NoError(t, bank.AddPreference(ctx, "u", domain.PrefBudget, 75))

	assert.Equal(t, map[string]any{domain.PrefBudget: 75.0}, bank.GetPreferences("u"))
	v, ok := bank.GetPreference("u", domain.PrefBudget)
	require.True(t, ok)
	assert.Equal(t, 75.0, v)
	assert.Equal(t, 2, backend.saves, "every mutation flushes")

	// Exactly one stored entry for the type.
	raw, err := backend.Load(ctx, memorybank.DefaultName)
	require.NoError(t, err)
	var doc struct {
		Preferences map[string][]map[string]any `json:"preferences"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc.Preferences["u"], 1)
	assert.Equal(t, 75.0, doc.Preferences["u"][0]["value"])
}

func TestGetPreference_Absent(t *testing.T) {
	bank := newBank(t, memory.NewSnapshotStore())
	_, ok := bank.GetPreference("nobody", domain.PrefBudget)
	assert.False(t, ok)
	assert.Empty(t, bank.GetPreferences("nobody"))
}

func TestHistory_CapEvictsOldest(t *testing.T) {
	ctx := context.Background()
	bank := newBank(t, memory.NewSnapshotStore())

	for i := 1; i <= domain.MaxHistoryPerUser+1; i++ {
		require.NoError(t, bank.AddMealHistory(ctx, "u", map[string]any{"n": i}, nil))
	}

	all := bank.GetMealHistory("u", 0)
	require.Len(t, all, domain.MaxHistoryPerUser)
	for i, e := range all {
		assert.JSONEq(t, fmt.Sprintf(`{"n":%d}`, i+2), string(e.Plan))
	}

	tail := bank.GetMealHistory("u", 3)
	require.Len(t, tail, 3)
	assert.JSONEq(t, `{"n":51}`, string(tail[2].Plan))
}

func TestHistory_DatesNonDecreasing(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	bank := memorybank.New(ctx, memory.NewSnapshotStore(), observability.Nop(), memorybank.WithClock(clock))

	require.NoError(t, bank.AddMealHistory(ctx, "u", map[string]any{}, nil))
	now = now.Add(-time.Hour)
	require.NoError(t, bank.AddMealHistory(ctx, "u", map[string]any{}, nil))

	h := bank.GetMealHistory("u", 0)
	require.Len(t, h, 2)
	assert.False(t, h[1].Date.Before(h[0].Date))
}

func TestSetFeedback(t *testing.T) {
	ctx := context.Background()
	bank := newBank(t, memory.NewSnapshotStore())

	assert.ErrorIs(t, bank.SetFeedback(ctx, "u", "great"), domain.ErrNoHistory)

	require.NoError(t, bank.AddMealHistory(ctx, "u", map[string]any{"meals": []any{}}, nil))
	require.NoError(t, bank.AddMealHistory(ctx, "u", map[string]any{"meals": []any{}}, nil))
	require.NoError(t, bank.SetFeedback(ctx, "u", "great"))

	h := bank.GetMealHistory("u", 0)
	assert.Nil(t, h[0].Feedback)
	require.NotNil(t, h[1].Feedback)
	assert.Equal(t, "great", *h[1].Feedback)
}

func TestGetUserContext(t *testing.T) {
	ctx := context.Background()
	bank := newBank(t, memory.NewSnapshotStore())

	require.NoError(t, bank.AddPreference(ctx, "u", domain.PrefDietaryRestriction, []string{"vegan"}))
	require.NoError(t, bank.AddPreference(ctx, "u", domain.PrefCuisinePreferences, []string{"thai"}))
	require.NoError(t, bank.AddPreference(ctx, "u", domain.PrefDietaryRestriction, []string{"vegetarian"}))
	for i := 0; i < 7; i++ {
		plan := map[string]any{"meals": []any{map[string]any{"name": fmt.Sprintf("meal %d", i)}}}
		require.NoError(t, bank.AddMealHistory(ctx, "u", plan, nil))
	}
	require.NoError(t, bank.AddMealHistory(ctx, "u", "not an object", nil))

	uc := bank.GetUserContext("u")
	assert.Equal(t, map[string]any{
		domain.PrefDietaryRestriction: []any{"vegetarian"},
		domain.PrefCuisinePreferences: []any{"thai"},
	}, uc.Preferences)

	require.Len(t, uc.RecentMeals, domain.RecentMealsInContext)
	assert.JSONEq(t, `[{"name":"meal 3"}]`, string(uc.RecentMeals[0].Meals))
	assert.JSONEq(t, `[]`, string(uc.RecentMeals[4].Meals))
	assert.NotEmpty(t, uc.RecentMeals[0].Date)
}

func TestFlushFailure_KeepsStateAndReturnsError(t *testing.T) {
	ctx := context.Background()
	backend := &flakyBackend{SnapshotStore: memory.NewSnapshotStore(), fail: true}
	bank := newBank(t, backend)

	err := bank.AddPreference(ctx, "u", domain.PrefBudget, 40)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	v, ok := bank.GetPreference("u", domain.PrefBudget)
	require.True(t, ok)
	assert.Equal(t, 40.0, v)
}

func TestReload_RoundTrip(t *testing.T) {
	ctx := context.Background()
	backend, err := file.NewStore(t.TempDir())
	require.NoError(t, err)

	first := newBank(t, backend)
	feedback := "too spicy"
	require.NoError(t, first.AddPreference(ctx, "u", domain.PrefBudget, 75))
	require.NoError(t, first.AddPreference(ctx, "u", domain.PrefDietaryRestriction, []string{"vegetarian"}))
	require.NoError(t, first.AddMealHistory(ctx, "u", map[string]any{"meals": []any{"a"}}, &feedback))

	second := newBank(t, backend)
	assert.Equal(t, first.GetPreferences("u"), second.GetPreferences("u"))

	h := second.GetMealHistory("u", 0)
	require.Len(t, h, 1)
	assert.JSONEq(t, `{"meals":["a"]}`, string(h[0].Plan))
	require.NotNil(t, h[0].Feedback)
	assert.Equal(t, feedback, *h[0].Feedback)
	assert.WithinDuration(t, first.GetMealHistory("u", 0)[0].Date, h[0].Date, time.Microsecond)
}

func TestLoad_CorruptSnapshotStartsEmpty(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewSnapshotStore()
	require.NoError(t, backend.Save(ctx, memorybank.DefaultName, []byte("{not json")))

	bank := newBank(t, backend)
	assert.Empty(t, bank.GetPreferences("u"))
	assert.Empty(t, bank.GetMealHistory("u", 0))

	// Still usable, and the next flush overwrites the corrupt document.
	require.NoError(t, bank.AddPreference(ctx, "u", domain.PrefBudget, 10))
	raw, err := backend.Load(ctx, memorybank.DefaultName)
	require.NoError(t, err)
	assert.True(t, json.Valid(raw))
}

func TestLoad_ToleratesUnknownAndMissingFields(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewSnapshotStore()
	doc := `{
		"version": 7,
		"preferences": {
			"u": [
				{"user_id": "u", "preference_type": "budget", "value": 60, "created_at": "2024-01-02T03:04:05.123456", "extra": true},
				{"preference_type": "cuisine_preferences", "value": ["italian"], "last_updated": "garbage"},
				{"value": "no type"},
				"not an entry"
			],
			"broken": 5
		},
		"meal_history": {
			"u": [
				{"meal_plan": {"meals": []}, "date": "2024-01-02 03:04:05.123456"},
				{"date": "2024-01-03T00:00:00Z", "feedback": "ok"}
			]
		}
	}`
	require.NoError(t, backend.Save(ctx, memorybank.DefaultName, []byte(doc)))

	bank := newBank(t, backend)
	assert.Equal(t, map[string]any{
		"budget":              60.0,
		"cuisine_preferences": []any{"italian"},
	}, bank.GetPreferences("u"))

	h := bank.GetMealHistory("u", 0)
	require.Len(t, h, 2)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC), h[0].Date)
	assert.Nil(t, h[0].Feedback)
	assert.JSONEq(t, `null`, string(h[1].Plan))
	require.NotNil(t, h[1].Feedback)
	assert.Equal(t, "ok", *h[1].Feedback)
}

func TestConcurrentWritesToDistinctTypes(t *testing.T) {
	ctx := context.Background()
	bank := newBank(t, memory.NewSnapshotStore())

	types := []string{"a", "b", "c", "d"}
	var wg sync.WaitGroup
	for _, pt := range types {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(pt string, i int) {
				defer wg.Done()
				_ = bank.AddPreference(ctx, "u", pt, i)
			}(pt, i)
		}
	}
	wg.Wait()

	for _, pt := range types {
		require.NoError(t, bank.AddPreference(ctx, "u", pt, pt+"-final"))
	}
	prefs := bank.GetUserContext("u").Preferences
	require.Len(t, prefs, len(types))
	for _, pt := range types {
		assert.Equal(t, pt+"-final", prefs[pt])
	}
}
