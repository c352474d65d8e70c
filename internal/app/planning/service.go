package planning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/PabloGalante/mealprep-agent/internal/app/agentflow"
	"github.com/PabloGalante/mealprep-agent/internal/app/tools"
	"github.com/PabloGalante/mealprep-agent/internal/domain"
	"github.com/PabloGalante/mealprep-agent/internal/observability"
)

// Service is the public entry point of the planner: it owns session
// bootstrapping, the workflow state machine and the persistence step.
type Service struct {
	sessions     domain.SessionStore
	bank         domain.MemoryBank
	orchestrator *agentflow.Orchestrator
	orderTool    tools.Tool
	obs          *observability.Provider
	now          func() time.Time
}

func NewService(
	sessions domain.SessionStore,
	bank domain.MemoryBank,
	orchestrator *agentflow.Orchestrator,
	orderTool tools.Tool,
	obs *observability.Provider,
) *Service {
	if obs == nil {
		obs = observability.Nop()
	}
	if orderTool == nil {
		orderTool = tools.NewOrderLinksTool()
	}
	return &Service{
		sessions:     sessions,
		bank:         bank,
		orchestrator: orchestrator,
		orderTool:    orderTool,
		obs:          obs,
		now:          time.Now,
	}
}

// CreateSession opens a session whose context is bootstrapped from the
// user's long-term preferences and recent history.
func (s *Service) CreateSession(ctx context.Context, userID domain.UserID, initialPreferences domain.Values) (domain.SessionID, error) {
	log := s.obs.LoggerFromContext(ctx).With("user_id", userID)
	log.Info("creating session")

	uc := s.bank.GetUserContext(userID)
	for k, v := range initialPreferences {
		uc.Preferences[k] = v
	}

	session, err := s.sessions.Create(userID, domain.Values{
		domain.ContextUserContext: uc,
		domain.ContextPreferences: domain.Values(uc.Preferences).Clone(),
	})
	if err != nil {
		log.Error("failed to create session", "error", err)
		return "", err
	}
	if len(initialPreferences) > 0 {
		if err := s.sessions.UpdatePreferences(session.ID, initialPreferences); err != nil {
			log.Error("failed to set initial preferences", "error", err)
			return "", err
		}
	}

	log.Info("session created", "session_id", session.ID)
	return session.ID, nil
}

// RunWorkflow plans meals for the session. A missing or expired session is
// the only error that aborts the run; worker failures degrade to fallbacks
// and persistence failures are reported on the result.
func (s *Service) RunWorkflow(ctx context.Context, req domain.WorkflowRequest) (*domain.WorkflowResult, error) {
	if req.Days < 1 || req.Days > domain.MaxPlanDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d, got %d", domain.ErrInvalidRequest, domain.MaxPlanDays, req.Days)
	}

	start := s.now()
	ctx, span := s.obs.Tracer().Start(ctx, "workflow.run", trace.WithAttributes(
		attribute.String("session_id", string(req.SessionID)),
		attribute.Int("days", req.Days),
	))
	defer span.End()

	metrics := s.obs.Metrics()
	metrics.WorkflowStarted(ctx)
	defer func() { metrics.WorkflowFinished(ctx, s.now().Sub(start).Seconds()) }()

	log := s.obs.LoggerFromContext(ctx).With("session_id", req.SessionID)
	res := &domain.WorkflowResult{
		SessionID: req.SessionID,
		States:    []domain.WorkflowState{domain.StateCreated},
	}

	session, err := s.sessions.Get(req.SessionID)
	if err != nil {
		res.States = append(res.States, domain.StateFailed)
		metrics.WorkflowFailed(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, "session lookup failed")
		log.Error("workflow aborted", "error", err)
		return res, err
	}

	planReq := s.resolve(session, req)
	log.Info("running workflow",
		"user_id", session.UserID,
		"days", planReq.Days,
		"restrictions", planReq.Restrictions,
		"cuisines", planReq.Cuisines,
	)

	s.orchestrator.Run(ctx, agentflow.RunInput{
		Request:             planReq,
		IncludeShoppingList: req.IncludeShoppingList,
		IncludeNutrition:    req.IncludeNutrition,
	}, res)

	res.PersistenceErrors = s.persist(ctx, session, req, res)
	if len(res.PersistenceErrors) == 0 {
		res.States = append(res.States, domain.StatePersisted)
	} else {
		span.SetAttributes(attribute.Int("persistence_errors", len(res.PersistenceErrors)))
	}

	span.SetAttributes(
		attribute.String("state", string(res.State())),
		attribute.Int("recipes_found", res.Recipes.RecipesFound),
	)
	log.Info("workflow finished", "state", res.State(), "recipes_found", res.Recipes.RecipesFound)
	return res, nil
}

// resolve fills in what the call left out from the session overrides first
// and the memory bank second.
func (s *Service) resolve(session *domain.Session, req domain.WorkflowRequest) domain.PlanRequest {
	uc := s.bank.GetUserContext(session.UserID)
	for k, v := range session.Preferences {
		uc.Preferences[k] = v
	}
	stored := domain.Values(uc.Preferences)

	out := domain.PlanRequest{
		Days:         req.Days,
		Restrictions: req.Restrictions,
		Cuisines:     req.Cuisines,
		Budget:       req.Budget,
		UserContext:  uc,
	}
	if out.Restrictions == nil {
		out.Restrictions, _ = stored.Strings(domain.PrefDietaryRestriction)
	}
	if out.Cuisines == nil {
		out.Cuisines, _ = stored.Strings(domain.PrefCuisinePreferences)
	}
	if out.Budget == nil {
		if b, ok := stored.Float(domain.PrefBudget); ok {
			out.Budget = &b
		}
	}
	return out
}

func (s *Service) persist(ctx context.Context, session *domain.Session, req domain.WorkflowRequest, res *domain.WorkflowResult) []string {
	log := s.obs.LoggerFromContext(ctx).With("session_id", session.ID, "user_id", session.UserID)

	var failures []string
	fail := func(what string, err error) {
		log.Error("failed to persist "+what, "error", err)
		failures = append(failures, fmt.Sprintf("%s: %v", what, err))
	}

	update := domain.Values{
		domain.ContextLastMealPlan: res.Plan,
		domain.ContextLastRecipes:  res.Recipes,
	}
	if res.ShoppingList != nil {
		update[domain.ContextLastShoppingList] = res.ShoppingList
	}
	if err := s.sessions.UpdateContext(session.ID, update); err != nil {
		fail("session context", err)
	}

	if err := s.bank.AddMealHistory(ctx, session.UserID, res.Plan, nil); err != nil {
		fail("meal history", err)
	}
	if len(req.Restrictions) > 0 {
		if err := s.bank.AddPreference(ctx, session.UserID, domain.PrefDietaryRestriction, req.Restrictions); err != nil {
			fail(domain.PrefDietaryRestriction, err)
		}
	}
	if len(req.Cuisines) > 0 {
		if err := s.bank.AddPreference(ctx, session.UserID, domain.PrefCuisinePreferences, req.Cuisines); err != nil {
			fail(domain.PrefCuisinePreferences, err)
		}
	}
	return failures
}

// UpdatePreferences merges prefs into the session and stores each key in the
// memory bank. It reports false when the session does not exist.
func (s *Service) UpdatePreferences(ctx context.Context, id domain.SessionID, prefs domain.Values) (bool, error) {
	log := s.obs.LoggerFromContext(ctx).With("session_id", id)

	if err := s.sessions.UpdatePreferences(id, prefs); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	session, err := s.sessions.Get(id)
	if err != nil {
		return false, nil
	}

	var result *multierror.Error
	for _, k := range prefs.Keys() {
		if err := s.bank.AddPreference(ctx, session.UserID, k, prefs[k]); err != nil {
			log.Error("failed to persist preference", "preference_type", k, "error", err)
			result = multierror.Append(result, err)
		}
	}
	log.Info("preferences updated", "keys", prefs.Keys())
	return true, result.ErrorOrNil()
}

// GetSessionInfo returns the public view of a live session.
func (s *Service) GetSessionInfo(ctx context.Context, id domain.SessionID) (*domain.SessionInfo, bool) {
	session, err := s.sessions.Get(id)
	if err != nil {
		s.obs.LoggerFromContext(ctx).Debug("session lookup failed", "session_id", id, "error", err)
		return nil, false
	}
	return session.Info(), true
}

// RecordFeedback attaches feedback to the user's latest planned week.
func (s *Service) RecordFeedback(ctx context.Context, id domain.SessionID, feedback string) error {
	session, err := s.sessions.Get(id)
	if err != nil {
		return err
	}
	if err := s.bank.SetFeedback(ctx, session.UserID, feedback); err != nil {
		s.obs.LoggerFromContext(ctx).Error("failed to record feedback", "session_id", id, "error", err)
		return err
	}
	return nil
}

// Checkout builds order links for the session's last shopping list.
func (s *Service) Checkout(ctx context.Context, id domain.SessionID, preferredService string) (map[string]any, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	list, ok := session.Context[domain.ContextLastShoppingList].(*domain.ShoppingList)
	if !ok || list == nil {
		return nil, domain.ErrNoShoppingList
	}

	input := map[string]any{
		"shopping_list":     list,
		"preferred_service": preferredService,
	}
	if b, ok := session.Preferences.Float(domain.PrefBudget); ok {
		input["budget"] = b
	} else if v, ok := s.bank.GetPreference(session.UserID, domain.PrefBudget); ok {
		input["budget"] = v
	}

	return s.orderTool.Call(ctx, tools.ToolContext{
		UserID:    string(session.UserID),
		SessionID: string(session.ID),
		RequestID: observability.RequestID(ctx),
	}, input)
}

func (s *Service) DeleteSession(ctx context.Context, id domain.SessionID) bool {
	ok := s.sessions.Delete(id)
	s.obs.LoggerFromContext(ctx).Info("session deleted", "session_id", id, "found", ok)
	return ok
}

// SweepSessions evicts expired sessions and returns how many were removed.
func (s *Service) SweepSessions(ctx context.Context) int {
	n := s.sessions.SweepExpired()
	s.obs.Metrics().SessionsExpired(ctx, n)
	if n > 0 {
		s.obs.LoggerFromContext(ctx).Info("expired sessions swept", "count", n)
	}
	return n
}
