package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/PabloGalante/mealprep-agent/internal/app/history"
	"github.com/PabloGalante/mealprep-agent/internal/app/planning"
	"github.com/PabloGalante/mealprep-agent/internal/domain"
	"github.com/PabloGalante/mealprep-agent/internal/observability"
)

const defaultPlanDays = 7

type Server struct {
	svc     *planning.Service
	history *history.Service
	obs     *observability.Provider
}

func NewServer(svc *planning.Service, hist *history.Service, obs *observability.Provider) http.Handler {
	if obs == nil {
		obs = observability.Nop()
	}
	s := &Server{svc: svc, history: hist, obs: obs}
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("/metrics", obs.MetricsHandler())

	// /sessions → create session (POST)
	mux.HandleFunc("/sessions", s.handleSessions)

	// /sessions/{id}             → GET info, DELETE
	// /sessions/{id}/plans       → POST: run the planning workflow
	// /sessions/{id}/preferences → PUT
	// /sessions/{id}/feedback    → POST
	// /sessions/{id}/checkout    → POST
	mux.HandleFunc("/sessions/", s.handleSessionWithID)

	// /users/{id}/history → GET
	mux.HandleFunc("/users/", s.handleUsers)

	return chainMiddlewares(mux,
		withCORS,
		withLogging(obs),
		withRequestID,
	)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type createSessionRequest struct {
	UserID      string         `json:"user_id"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

type runWorkflowRequest struct {
	Days                *int     `json:"days"`
	Restrictions        []string `json:"restrictions"`
	Cuisines            []string `json:"cuisine_preferences"`
	Budget              *float64 `json:"budget"`
	IncludeNutrition    *bool    `json:"include_nutrition"`
	IncludeShoppingList *bool    `json:"include_shopping_list"`
}

type feedbackRequest struct {
	Feedback string `json:"feedback"`
}

type checkoutRequest struct {
	Service string `json:"service"`
}

type historyResponse struct {
	UserID  string                `json:"user_id"`
	Entries []domain.HistoryEntry `json:"entries"`
}

// ─────────────────────────────────────────────
// Basic routing
// ─────────────────────────────────────────────

// /sessions
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateSession(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /sessions/{id} and its sub-resources
func (s *Server) handleSessionWithID(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/")
	id := domain.SessionID(parts[0])
	if id == "" || len(parts) > 2 {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleGetSession(w, r, id)
		case http.MethodDelete:
			s.handleDeleteSession(w, r, id)
		default:
			methodNotAllowed(w)
		}
		return
	}

	route := map[string]struct {
		method  string
		handler func(http.ResponseWriter, *http.Request, domain.SessionID)
	}{
		"plans":       {http.MethodPost, s.handleRunWorkflow},
		"preferences": {http.MethodPut, s.handleUpdatePreferences},
		"feedback":    {http.MethodPost, s.handleFeedback},
		"checkout":    {http.MethodPost, s.handleCheckout},
	}[parts[1]]
	if route.handler == nil {
		http.NotFound(w, r)
		return
	}
	if r.Method != route.method {
		methodNotAllowed(w)
		return
	}
	route.handler(w, r, id)
}

// /users/{id}/history
func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/users/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "history" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	s.handleGetHistory(w, r, domain.UserID(parts[0]))
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		badRequest(w, "user_id is required")
		return
	}

	id, err := s.svc.CreateSession(r.Context(), domain.UserID(req.UserID), domain.Values(req.Preferences))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: string(id)})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	info, ok := s.svc.GetSessionInfo(r.Context(), id)
	if !ok {
		notFound(w, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	if !s.svc.DeleteSession(r.Context(), id) {
		notFound(w, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRunWorkflow(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	var req runWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	wf := domain.WorkflowRequest{
		SessionID:           id,
		Days:                defaultPlanDays,
		Restrictions:        req.Restrictions,
		Cuisines:            req.Cuisines,
		Budget:              req.Budget,
		IncludeNutrition:    boolOr(req.IncludeNutrition, true),
		IncludeShoppingList: boolOr(req.IncludeShoppingList, true),
	}
	if req.Days != nil {
		wf.Days = *req.Days
	}

	res, err := s.svc.RunWorkflow(r.Context(), wf)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	var prefs map[string]any
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	ok, err := s.svc.UpdatePreferences(r.Context(), id, domain.Values(prefs))
	if !ok {
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		notFound(w, "session not found")
		return
	}

	resp := map[string]any{"session_id": id, "updated": true}
	if err != nil {
		resp["persistence_error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Feedback) == "" {
		badRequest(w, "feedback is required")
		return
	}

	if err := s.svc.RecordFeedback(r.Context(), id, req.Feedback); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	// The body is optional.
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "invalid JSON body")
		return
	}

	out, err := s.svc.Checkout(r.Context(), id, req.Service)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request, userID domain.UserID) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	writeJSON(w, http.StatusOK, historyResponse{
		UserID:  string(userID),
		Entries: s.history.GetUserHistory(r.Context(), userID, limit),
	})
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels to status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		notFound(w, "session not found")
	case errors.Is(err, domain.ErrInvalidRequest):
		badRequest(w, err.Error())
	case errors.Is(err, domain.ErrNoShoppingList), errors.Is(err, domain.ErrNoHistory):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		s.internalError(w, r, err)
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func notFound(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": msg,
	})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.obs.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}
