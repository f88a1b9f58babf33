package workflow

import (
	"time"

	"github.com/presswerk/presswerk/runtime/prompt"
)

// Phase names one step of the generation workflow.
type Phase string

// Workflow phases. Error is terminal; once entered no further transitions
// occur.
const (
	PhaseEnrich     Phase = "enrich"
	PhasePlan       Phase = "plan"
	PhaseQuestions  Phase = "questions"
	PhaseRevision   Phase = "revision"
	PhaseCorrection Phase = "correction"
	PhaseProduction Phase = "production"
	PhaseCompleted  Phase = "completed"
	PhaseError      Phase = "error"
)

// ErrorKind classifies terminal workflow failures by origin so callers can
// handle them programmatically.
type ErrorKind string

const (
	// ErrorKindPrecondition marks a phase running without a required
	// predecessor's output.
	ErrorKindPrecondition ErrorKind = "precondition"
	// ErrorKindUpstream marks a failed generation/extraction/upload call.
	ErrorKindUpstream ErrorKind = "upstream"
	// ErrorKindMalformed marks generation output that could not be parsed
	// into the expected shape and had no local fallback.
	ErrorKindMalformed ErrorKind = "malformed"
)

// PhaseMarkerQuestionsSkipped is appended to the phase log when the
// questions phase is bypassed by configuration.
const PhaseMarkerQuestionsSkipped = "questions-skipped"

type (
	// State is the mutable accumulator threaded through phases. Each phase
	// folds a partial Update into it; fields set by earlier phases are
	// preserved automatically.
	State struct {
		// RunID identifies this workflow run.
		RunID string `json:"run_id"`

		// CurrentPhase is the phase the workflow is in.
		CurrentPhase Phase `json:"current_phase"`

		// PhasesExecuted is the append-only log of executed phase
		// identifiers, used for observability and idempotence checks.
		PhasesExecuted []string `json:"phases_executed"`

		// Enriched is set once by the enrichment phase and read-only after.
		Enriched *EnrichedContext `json:"enriched,omitempty"`

		// Plan holds the generated plan.
		Plan *PlanData `json:"plan,omitempty"`

		// Questions holds the clarification questions, when any.
		Questions *QuestionsData `json:"questions,omitempty"`

		// RevisedPlan and CorrectedPlan are alternate plan versions. At most
		// one is authoritative at a time; see CurrentPlan.
		RevisedPlan   *RevisedPlanData   `json:"revised_plan,omitempty"`
		CorrectedPlan *CorrectedPlanData `json:"corrected_plan,omitempty"`

		// Production holds the final generated content.
		Production *ProductionData `json:"production,omitempty"`

		// TotalAICalls counts generation-service invocations across phases.
		TotalAICalls int `json:"total_ai_calls"`

		// PhaseTimings records wall-clock duration per executed phase.
		PhaseTimings map[string]time.Duration `json:"phase_timings,omitempty"`

		// Error carries the terminal failure message when CurrentPhase is
		// PhaseError.
		Error string `json:"error,omitempty"`

		// ErrorKind classifies the terminal failure.
		ErrorKind ErrorKind `json:"error_kind,omitempty"`
	}

	// EnrichedContext caches all contextual material gathered by the
	// enrichment phase so later phases never re-fetch.
	EnrichedContext struct {
		// Documents are the resolved source documents.
		Documents []prompt.Document `json:"documents,omitempty"`
		// WebSearchResults are snippets retrieved through web search.
		WebSearchResults []string `json:"web_search_results,omitempty"`
		// KnowledgeBase are snippets retrieved from the knowledge base.
		KnowledgeBase []string `json:"knowledge_base,omitempty"`
		// Framing are value-framing snippets, already formatted.
		Framing []string `json:"framing,omitempty"`
		// Examples are stylistic examples fetched for the requested
		// platforms. Inclusion is still gated per assembly call.
		Examples []prompt.Example `json:"examples,omitempty"`
		// Meta carries enrichment metadata (counts, timings).
		Meta map[string]any `json:"meta,omitempty"`
	}

	// PlanData is the output of the plan phase.
	PlanData struct {
		// OriginalPlan is the generated plan text.
		OriginalPlan string `json:"original_plan"`
		// Summary is a short plan summary.
		Summary string `json:"summary,omitempty"`
		// Confidence is the model's confidence in the plan, in [0,1].
		Confidence float64 `json:"confidence"`
	}

	// QuestionsData is the output of the questions phase.
	QuestionsData struct {
		// NeedsClarification reports whether user input is required before
		// production.
		NeedsClarification bool `json:"needs_clarification"`
		// Questions lists the clarification questions for the caller's UI.
		Questions []Question `json:"questions,omitempty"`
		// Round counts questions-phase executions for this run.
		Round int `json:"round"`
	}

	// Question is one clarification question. The caller collects answers
	// outside the core and feeds them back as key to answer pairs.
	Question struct {
		ID        string   `json:"id"`
		Prompt    string   `json:"prompt"`
		Type      string   `json:"type"`
		Options   []string `json:"options,omitempty"`
		Rationale string   `json:"rationale,omitempty"`
	}

	// RevisedPlanData is the plan after integrating question answers.
	RevisedPlanData struct {
		RevisedPlan string `json:"revised_plan"`
	}

	// CorrectedPlanData is the plan after applying free-form user edits.
	CorrectedPlanData struct {
		CorrectedPlan string `json:"corrected_plan"`
	}

	// ProductionData is the final generated content plus metadata.
	ProductionData struct {
		// Content is the generated document.
		Content string `json:"content"`
		// PlanSource records which plan version production used
		// ("corrected", "revised" or "original").
		PlanSource string `json:"plan_source"`
		// Duration is the production phase wall-clock time.
		Duration time.Duration `json:"duration"`
		// GeneratedAt is when production finished.
		GeneratedAt time.Time `json:"generated_at"`
	}
)

// Question types produced by the questions phase.
const (
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeText           = "text"
	QuestionTypeYesNo          = "yes_no"
)

// Plan version identifiers recorded in ProductionData.PlanSource.
const (
	PlanSourceCorrected = "corrected"
	PlanSourceRevised   = "revised"
	PlanSourceOriginal  = "original"
)

// CurrentPlan resolves the authoritative plan text: the corrected plan if
// present, else the revised plan, else the original plan. Every phase that
// needs the current plan goes through here so all phases share one view of
// workflow state.
func (s *State) CurrentPlan() (text, source string) {
	if s == nil {
		return "", ""
	}
	if s.CorrectedPlan != nil && s.CorrectedPlan.CorrectedPlan != "" {
		return s.CorrectedPlan.CorrectedPlan, PlanSourceCorrected
	}
	if s.RevisedPlan != nil && s.RevisedPlan.RevisedPlan != "" {
		return s.RevisedPlan.RevisedPlan, PlanSourceRevised
	}
	if s.Plan != nil {
		return s.Plan.OriginalPlan, PlanSourceOriginal
	}
	return "", ""
}

// Update is the partial state mutation a phase node returns. Only fields the
// phase owns are set; nil fields leave the state untouched.
type Update struct {
	Enriched      *EnrichedContext
	Plan          *PlanData
	Questions     *QuestionsData
	RevisedPlan   *RevisedPlanData
	CorrectedPlan *CorrectedPlanData
	Production    *ProductionData

	// AICalls is the number of generation-service calls the node issued.
	AICalls int

	// Markers are extra phase-log entries beyond the phase name itself
	// (e.g. PhaseMarkerQuestionsSkipped).
	Markers []string

	// Outcome drives the transition table.
	Outcome Outcome

	// Err and ErrKind describe the failure when Outcome is OutcomeFail.
	Err     string
	ErrKind ErrorKind
}

// apply folds the update into the state. Phase log entries and timings are
// handled by the orchestrator loop.
func (s *State) apply(u Update) {
	if u.Enriched != nil {
		s.Enriched = u.Enriched
	}
	if u.Plan != nil {
		s.Plan = u.Plan
	}
	if u.Questions != nil {
		s.Questions = u.Questions
	}
	if u.RevisedPlan != nil {
		s.RevisedPlan = u.RevisedPlan
	}
	if u.CorrectedPlan != nil {
		s.CorrectedPlan = u.CorrectedPlan
	}
	if u.Production != nil {
		s.Production = u.Production
	}
	s.TotalAICalls += u.AICalls
	if u.Outcome == OutcomeFail {
		s.Error = u.Err
		s.ErrorKind = u.ErrKind
	}
}

func (s *State) recordPhase(name string, d time.Duration) {
	s.PhasesExecuted = append(s.PhasesExecuted, name)
	if s.PhaseTimings == nil {
		s.PhaseTimings = make(map[string]time.Duration)
	}
	s.PhaseTimings[name] = d
}
