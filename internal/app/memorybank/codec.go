package memorybank

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PabloGalante/mealprep-agent/internal/domain"
)

// Layouts accepted when reading timestamps back. Snapshots are always
// written as RFC 3339; the rest cover ISO-8601 variants without a zone.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func parseTime(raw json.RawMessage) time.Time {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

type state struct {
	preferences map[domain.UserID][]domain.PreferenceEntry
	history     map[domain.UserID][]domain.HistoryEntry
}

func newState() *state {
	return &state{
		preferences: make(map[domain.UserID][]domain.PreferenceEntry),
		history:     make(map[domain.UserID][]domain.HistoryEntry),
	}
}

type preferenceWire struct {
	UserID         domain.UserID `json:"user_id"`
	PreferenceType string        `json:"preference_type"`
	Value          any           `json:"value"`
	CreatedAt      string        `json:"created_at"`
	LastUpdated    string        `json:"last_updated"`
}

type historyWire struct {
	UserID   domain.UserID   `json:"user_id"`
	Plan     json.RawMessage `json:"meal_plan"`
	Date     string          `json:"date"`
	Feedback *string         `json:"feedback"`
}

type snapshotWire struct {
	Preferences map[domain.UserID][]preferenceWire `json:"preferences"`
	History     map[domain.UserID][]historyWire    `json:"meal_history"`
}

func encodeState(st *state) ([]byte, error) {
	doc := snapshotWire{
		Preferences: make(map[domain.UserID][]preferenceWire, len(st.preferences)),
		History:     make(map[domain.UserID][]historyWire, len(st.history)),
	}
	for uid, entries := range st.preferences {
		out := make([]preferenceWire, 0, len(entries))
		for _, e := range entries {
			out = append(out, preferenceWire{
				UserID:         e.UserID,
				PreferenceType: e.PreferenceType,
				Value:          e.Value,
				CreatedAt:      formatTime(e.CreatedAt),
				LastUpdated:    formatTime(e.LastUpdated),
			})
		}
		doc.Preferences[uid] = out
	}
	for uid, entries := range st.history {
		out := make([]historyWire, 0, len(entries))
		for _, e := range entries {
			plan := e.Plan
			if len(plan) == 0 {
				plan = json.RawMessage("null")
			}
			out = append(out, historyWire{
				UserID:   e.UserID,
				Plan:     plan,
				Date:     formatTime(e.Date),
				Feedback: e.Feedback,
			})
		}
		doc.History[uid] = out
	}
	return json.MarshalIndent(doc, "", "  ")
}

// decodeState reads a snapshot document. Only a document that is not a JSON
// object at all is an error; malformed sections and entries are skipped and
// missing fields take their zero value.
func decodeState(data []byte) (*state, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	st := newState()
	for uid, raws := range decodeSection(top["preferences"]) {
		for _, raw := range raws {
			e, ok := decodePreference(uid, raw)
			if !ok {
				continue
			}
			st.preferences[uid] = upsertPreference(st.preferences[uid], e)
		}
	}
	for uid, raws := range decodeSection(top["meal_history"]) {
		var entries []domain.HistoryEntry
		for _, raw := range raws {
			e, ok := decodeHistory(uid, raw)
			if !ok {
				continue
			}
			entries = append(entries, e)
		}
		if len(entries) > domain.MaxHistoryPerUser {
			entries = entries[len(entries)-domain.MaxHistoryPerUser:]
		}
		if len(entries) > 0 {
			st.history[uid] = entries
		}
	}
	return st, nil
}

func decodeSection(raw json.RawMessage) map[domain.UserID][]json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var byUser map[domain.UserID]json.RawMessage
	if err := json.Unmarshal(raw, &byUser); err != nil {
		return nil
	}
	out := make(map[domain.UserID][]json.RawMessage, len(byUser))
	for uid, list := range byUser {
		var items []json.RawMessage
		if err := json.Unmarshal(list, &items); err != nil {
			continue
		}
		out[uid] = items
	}
	return out
}

func decodePreference(uid domain.UserID, raw json.RawMessage) (domain.PreferenceEntry, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return domain.PreferenceEntry{}, false
	}
	var prefType string
	if err := json.Unmarshal(fields["preference_type"], &prefType); err != nil || prefType == "" {
		return domain.PreferenceEntry{}, false
	}
	var value any
	if v, ok := fields["value"]; ok {
		if err := json.Unmarshal(v, &value); err != nil {
			value = nil
		}
	}
	return domain.PreferenceEntry{
		UserID:         uid,
		PreferenceType: prefType,
		Value:          value,
		CreatedAt:      parseTime(fields["created_at"]),
		LastUpdated:    parseTime(fields["last_updated"]),
	}, true
}

func decodeHistory(uid domain.UserID, raw json.RawMessage) (domain.HistoryEntry, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return domain.HistoryEntry{}, false
	}
	e := domain.HistoryEntry{
		UserID: uid,
		Plan:   append(json.RawMessage(nil), fields["meal_plan"]...),
		Date:   parseTime(fields["date"]),
	}
	if len(e.Plan) == 0 {
		e.Plan = json.RawMessage("null")
	}
	var feedback *string
	if err := json.Unmarshal(fields["feedback"], &feedback); err == nil {
		e.Feedback = feedback
	}
	return e, true
}

func upsertPreference(entries []domain.PreferenceEntry, e domain.PreferenceEntry) []domain.PreferenceEntry {
	for i := range entries {
		if entries[i].PreferenceType == e.PreferenceType {
			entries[i].Value = e.Value
			entries[i].LastUpdated = e.LastUpdated
			return entries
		}
	}
	return append(entries, e)
}
