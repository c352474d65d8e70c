package domain

// WorkflowState is a step of the planning workflow state machine.
type WorkflowState string

const (
	StateCreated      WorkflowState = "CREATED"
	StatePlanning     WorkflowState = "PLANNING"
	StateRecipeLookup WorkflowState = "RECIPE_LOOKUP"
	StateListBuilding WorkflowState = "LIST_BUILDING"
	StateNutrition    WorkflowState = "NUTRITION"
	StateAggregated   WorkflowState = "AGGREGATED"
	StatePersisted    WorkflowState = "PERSISTED"
	StateFailed       WorkflowState = "FAILED"
)

// Stage names a worker call inside the workflow.
type Stage string

const (
	StagePlanner      Stage = "planner"
	StageRecipeFinder Stage = "recipe_finder"
	StageListBuilder  Stage = "list_builder"
	StageNutrition    Stage = "nutrition"
)

// OutcomeStatus tells which path a worker call took.
type OutcomeStatus string

const (
	OutcomeOK       OutcomeStatus = "ok"
	OutcomeFallback OutcomeStatus = "fallback"
	OutcomeAbsent   OutcomeStatus = "absent"
	OutcomeSkipped  OutcomeStatus = "skipped"
)

// StageReport records how a stage finished.
type StageReport struct {
	Stage  Stage         `json:"stage"`
	Status OutcomeStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// MaxPlanDays bounds WorkflowRequest.Days.
const MaxPlanDays = 14

// WorkflowRequest carries the per-call arguments of a workflow run.
// Nil slices and a nil Budget mean "not supplied"; stored preferences fill them in.
type WorkflowRequest struct {
	SessionID           SessionID
	Days                int
	Restrictions        []string
	Cuisines            []string
	Budget              *float64
	IncludeNutrition    bool
	IncludeShoppingList bool
}

// WorkflowResult is produced fresh by every run.
type WorkflowResult struct {
	SessionID         SessionID        `json:"session_id"`
	Plan              *MealPlan        `json:"meal_plan"`
	Recipes           RecipeLookup     `json:"recipes"`
	ShoppingList      *ShoppingList    `json:"shopping_list,omitempty"`
	Nutrition         *NutritionReport `json:"nutrition,omitempty"`
	Stages            []StageReport    `json:"stages"`
	States            []WorkflowState  `json:"states"`
	PersistenceErrors []string         `json:"persistence_errors,omitempty"`
}

// State returns the last state the run reached.
func (r *WorkflowResult) State() WorkflowState {
	if len(r.States) == 0 {
		return StateCreated
	}
	return r.States[len(r.States)-1]
}

// Stage returns the report of the given stage, if any.
func (r *WorkflowResult) Stage(s Stage) (StageReport, bool) {
	for _, rep := range r.Stages {
		if rep.Stage == s {
			return rep, true
		}
	}
	return StageReport{}, false
}

// UsedFallback reports whether the given stage degraded to its fallback.
func (r *WorkflowResult) UsedFallback(s Stage) bool {
	rep, ok := r.Stage(s)
	return ok && rep.Status == OutcomeFallback
}

// SessionInfo is the public view of a session.
type SessionInfo struct {
	SessionID    SessionID `json:"session_id"`
	UserID       UserID    `json:"user_id"`
	CreatedAt    string    `json:"created_at"`
	LastAccessed string    `json:"last_accessed"`
	Preferences  Values    `json:"preferences"`
	ContextKeys  []string  `json:"context_keys"`
}
