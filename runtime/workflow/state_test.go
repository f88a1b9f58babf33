package workflow

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestCurrentPlanPrecedence(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("corrected beats revised beats original", prop.ForAll(
		func(original, revised, corrected string, hasRevised, hasCorrected bool) bool {
			st := &State{Plan: &PlanData{OriginalPlan: original}}
			if hasRevised {
				st.RevisedPlan = &RevisedPlanData{RevisedPlan: revised}
			}
			if hasCorrected {
				st.CorrectedPlan = &CorrectedPlanData{CorrectedPlan: corrected}
			}
			text, source := st.CurrentPlan()
			switch {
			case hasCorrected && corrected != "":
				return text == corrected && source == PlanSourceCorrected
			case hasRevised && revised != "":
				return text == revised && source == PlanSourceRevised
			default:
				return text == original && source == PlanSourceOriginal
			}
		},
		gen.AlphaString(), gen.AlphaString(), gen.AlphaString(), gen.Bool(), gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestCurrentPlanWithoutPlan(t *testing.T) {
	var st *State
	text, source := st.CurrentPlan()
	assert.Empty(t, text)
	assert.Empty(t, source)

	text, source = (&State{}).CurrentPlan()
	assert.Empty(t, text)
	assert.Empty(t, source)
}

func TestPhaseLogAppendOnly(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("recording a phase preserves the existing log as prefix", prop.ForAll(
		func(names []string) bool {
			st := &State{}
			for _, n := range names {
				before := append([]string(nil), st.PhasesExecuted...)
				st.recordPhase(n, time.Millisecond)
				if len(st.PhasesExecuted) != len(before)+1 {
					return false
				}
				for i, b := range before {
					if st.PhasesExecuted[i] != b {
						return false
					}
				}
				if st.PhasesExecuted[len(before)] != n {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func TestApplyFoldsPartialUpdates(t *testing.T) {
	st := &State{}
	st.apply(Update{Enriched: &EnrichedContext{}, AICalls: 1, Outcome: OutcomeOK})
	st.apply(Update{Plan: &PlanData{OriginalPlan: "Plan"}, AICalls: 1, Outcome: OutcomeOK})
	st.apply(Update{Questions: &QuestionsData{Round: 1}, AICalls: 1, Outcome: OutcomeSkip})

	assert.NotNil(t, st.Enriched, "earlier fields survive later updates")
	assert.NotNil(t, st.Plan)
	assert.NotNil(t, st.Questions)
	assert.Equal(t, 3, st.TotalAICalls)
	assert.Empty(t, st.Error)
}

func TestApplyRecordsFailure(t *testing.T) {
	st := &State{}
	st.apply(Update{Outcome: OutcomeFail, Err: "kaputt", ErrKind: ErrorKindUpstream})
	assert.Equal(t, "kaputt", st.Error)
	assert.Equal(t, ErrorKindUpstream, st.ErrorKind)
}
