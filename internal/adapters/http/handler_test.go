package httpadapter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/PabloGalante/mealprep-agent/internal/adapters/http"
	"github.com/PabloGalante/mealprep-agent/internal/adapters/kitchen"
	"github.com/PabloGalante/mealprep-agent/internal/adapters/llm"
	"github.com/PabloGalante/mealprep-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/mealprep-agent/internal/app/agentflow"
	"github.com/PabloGalante/mealprep-agent/internal/app/history"
	"github.com/PabloGalante/mealprep-agent/internal/app/memorybank"
	"github.com/PabloGalante/mealprep-agent/internal/app/planning"
	"github.com/PabloGalante/mealprep-agent/internal/domain"
	"github.com/PabloGalante/mealprep-agent/internal/observability"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	obs, err := observability.New(context.Background(), observability.Options{LogOutput: &bytes.Buffer{}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = obs.Shutdown(context.Background()) })

	bank := memorybank.New(context.Background(), memory.NewSnapshotStore(), obs)
	orch := agentflow.NewOrchestrator(agentflow.Workers{
		Planner:   kitchen.NewLLMPlanner(llm.NewMockLLM()),
		Recipes:   kitchen.NewCatalog(),
		Lists:     kitchen.NewOptimizer(),
		Nutrition: kitchen.NewEstimator(),
	}, agentflow.DefaultConfig(), obs)

	svc := planning.NewService(memory.NewSessionStore(time.Hour), bank, orch, nil, obs)
	return httpadapter.NewServer(svc, history.NewService(bank), obs)
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	return w
}

func createSession(t *testing.T, srv http.Handler, body string) string {
	t.Helper()
	w := do(t, srv, http.MethodPost, "/sessions", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func TestHealthz(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCreateSession_Validation(t *testing.T) {
	srv := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/sessions", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/sessions", `{"user_id":" "}`).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv, http.MethodGet, "/sessions", "").Code)
}

func TestPlanFlow(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv, `{"user_id":"u1","preferences":{"budget":100}}`)

	w := do(t, srv, http.MethodPost, "/sessions/"+id+"/plans", `{"days":2,"restrictions":["vegetarian"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res domain.WorkflowResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Len(t, res.Plan.Meals, 6)
	assert.Equal(t, domain.StatePersisted, res.State())
	require.NotNil(t, res.ShoppingList, "shopping list is on by default")
	require.NotNil(t, res.Nutrition, "nutrition is on by default")

	w = do(t, srv, http.MethodGet, "/sessions/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	var info domain.SessionInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, domain.UserID("u1"), info.UserID)
	assert.Contains(t, info.ContextKeys, domain.ContextLastShoppingList)

	w = do(t, srv, http.MethodPost, "/sessions/"+id+"/checkout", `{"service":"Target"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var checkout map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &checkout))
	assert.Equal(t, "Target", checkout["recommended_service"])

	w = do(t, srv, http.MethodPost, "/sessions/"+id+"/feedback", `{"feedback":"loved it"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, srv, http.MethodGet, "/users/u1/history?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	var hist struct {
		Entries []domain.HistoryEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	require.Len(t, hist.Entries, 1)
	require.NotNil(t, hist.Entries[0].Feedback)
	assert.Equal(t, "loved it", *hist.Entries[0].Feedback)
}

func TestPlan_Errors(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv, `{"user_id":"u2"}`)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/sessions/"+id+"/plans", `{"days":0}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/sessions/"+id+"/plans", `{"days":50000000}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPost, "/sessions/missing/plans", `{"days":1}`).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv, http.MethodGet, "/sessions/"+id+"/plans", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPost, "/sessions/"+id+"/unknown", `{}`).Code)
}

func TestCheckoutAndFeedback_Conflicts(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv, `{"user_id":"u3"}`)

	assert.Equal(t, http.StatusConflict, do(t, srv, http.MethodPost, "/sessions/"+id+"/checkout", "").Code)
	assert.Equal(t, http.StatusConflict, do(t, srv, http.MethodPost, "/sessions/"+id+"/feedback", `{"feedback":"meh"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/sessions/"+id+"/feedback", `{"feedback":""}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPost, "/sessions/missing/checkout", "").Code)
}

func TestPreferencesAndDelete(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv, `{"user_id":"u4"}`)

	w := do(t, srv, http.MethodPut, "/sessions/"+id+"/preferences", `{"budget":42}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, srv, http.MethodGet, "/sessions/"+id, "")
	var info domain.SessionInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, 42.0, info.Preferences[domain.PrefBudget])

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPut, "/sessions/missing/preferences", `{"a":1}`).Code)

	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/sessions/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/sessions/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/sessions/"+id, "").Code)
}

func TestHistory_BadLimit(t *testing.T) {
	srv := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/users/u/history?limit=x", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/users/u", "").Code)

	w := do(t, srv, http.MethodGet, "/users/u/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"u","entries":[]}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv, `{"user_id":"u5"}`)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/sessions/"+id+"/plans", `{"days":1}`).Code)

	w := do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "workflow_runs_total")
}

func TestCORSPreflight(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodOptions, "/sessions", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
