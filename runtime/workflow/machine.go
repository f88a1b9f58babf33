package workflow

import "fmt"

// Outcome is the result classification a phase node reports. Together with
// the current phase it selects the next phase from the transition table.
type Outcome string

// Phase outcomes.
const (
	// OutcomeOK means the phase completed and the workflow advances.
	OutcomeOK Outcome = "ok"
	// OutcomeSkip means the questions phase decided no clarification is
	// needed and production follows directly.
	OutcomeSkip Outcome = "skip"
	// OutcomeAwait means the workflow pauses for user answers.
	OutcomeAwait Outcome = "await"
	// OutcomeFail means an unrecoverable failure; the workflow terminates.
	OutcomeFail Outcome = "fail"
)

// transitions is the legal transition set: current phase × outcome → next
// phase. Keeping it as data makes the set statically inspectable and
// testable independent of the phase bodies.
var transitions = map[Phase]map[Outcome]Phase{
	PhaseEnrich: {
		OutcomeOK:   PhasePlan,
		OutcomeFail: PhaseError,
	},
	PhasePlan: {
		OutcomeOK:   PhaseQuestions,
		OutcomeFail: PhaseError,
	},
	PhaseQuestions: {
		OutcomeOK:    PhaseProduction,
		OutcomeSkip:  PhaseProduction,
		OutcomeAwait: PhaseQuestions,
		OutcomeFail:  PhaseError,
	},
	PhaseRevision: {
		OutcomeOK:   PhaseProduction,
		OutcomeFail: PhaseError,
	},
	PhaseCorrection: {
		OutcomeOK:   PhaseProduction,
		OutcomeFail: PhaseError,
	},
	PhaseProduction: {
		OutcomeOK:   PhaseCompleted,
		OutcomeFail: PhaseError,
	},
}

// nextPhase resolves the transition for the given phase and outcome.
func nextPhase(current Phase, outcome Outcome) (Phase, error) {
	row, ok := transitions[current]
	if !ok {
		return "", fmt.Errorf("workflow: phase %q has no transitions", current)
	}
	next, ok := row[outcome]
	if !ok {
		return "", fmt.Errorf("workflow: illegal transition from %q on %q", current, outcome)
	}
	return next, nil
}

// Transitions returns a copy of the legal transition table for inspection.
func Transitions() map[Phase]map[Outcome]Phase {
	out := make(map[Phase]map[Outcome]Phase, len(transitions))
	for phase, row := range transitions {
		cp := make(map[Outcome]Phase, len(row))
		for o, n := range row {
			cp[o] = n
		}
		out[phase] = cp
	}
	return out
}
