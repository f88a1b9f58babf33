package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextPhaseTable(t *testing.T) {
	cases := []struct {
		phase   Phase
		outcome Outcome
		next    Phase
	}{
		{PhaseEnrich, OutcomeOK, PhasePlan},
		{PhasePlan, OutcomeOK, PhaseQuestions},
		{PhaseQuestions, OutcomeOK, PhaseProduction},
		{PhaseQuestions, OutcomeSkip, PhaseProduction},
		{PhaseQuestions, OutcomeAwait, PhaseQuestions},
		{PhaseRevision, OutcomeOK, PhaseProduction},
		{PhaseCorrection, OutcomeOK, PhaseProduction},
		{PhaseProduction, OutcomeOK, PhaseCompleted},
	}
	for _, tc := range cases {
		next, err := nextPhase(tc.phase, tc.outcome)
		require.NoError(t, err)
		assert.Equal(t, tc.next, next, "%s on %s", tc.phase, tc.outcome)
	}
}

func TestEveryPhaseFailsToError(t *testing.T) {
	for phase := range transitions {
		next, err := nextPhase(phase, OutcomeFail)
		require.NoError(t, err, "phase %s", phase)
		assert.Equal(t, PhaseError, next)
	}
}

func TestIllegalTransitions(t *testing.T) {
	_, err := nextPhase(PhasePlan, OutcomeAwait)
	assert.Error(t, err)
	_, err = nextPhase(PhaseCompleted, OutcomeOK)
	assert.Error(t, err)
	_, err = nextPhase(PhaseError, OutcomeOK)
	assert.Error(t, err)
}

func TestTransitionsReturnsCopy(t *testing.T) {
	cp := Transitions()
	cp[PhasePlan][OutcomeOK] = PhaseError
	next, err := nextPhase(PhasePlan, OutcomeOK)
	require.NoError(t, err)
	assert.Equal(t, PhaseQuestions, next)
}

func TestTerminalPhasesHaveNoTransitions(t *testing.T) {
	_, completedHas := transitions[PhaseCompleted]
	_, errorHas := transitions[PhaseError]
	assert.False(t, completedHas)
	assert.False(t, errorHas)
}
