package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePlanExtractsMarkers(t *testing.T) {
	text := "Der Plan.\n\nZUSAMMENFASSUNG: Kurz und gut.\nKONFIDENZ: 0.75"
	plan, summary, confidence := parsePlan(text)
	assert.Equal(t, "Der Plan.", plan)
	assert.Equal(t, "Kurz und gut.", summary)
	assert.InDelta(t, 0.75, confidence, 1e-9)
}

func TestParsePlanCommaDecimal(t *testing.T) {
	_, _, confidence := parsePlan("Plan.\nKONFIDENZ: 0,8")
	assert.InDelta(t, 0.8, confidence, 1e-9)
}

func TestParsePlanMissingMarkersDegradeSoftly(t *testing.T) {
	plan, summary, confidence := parsePlan("Nur der Plan, keine Marker.")
	assert.Equal(t, "Nur der Plan, keine Marker.", plan)
	assert.Empty(t, summary)
	assert.InDelta(t, 0.5, confidence, 1e-9)
}

func TestParsePlanRejectsOutOfRangeConfidence(t *testing.T) {
	_, _, confidence := parsePlan("Plan.\nKONFIDENZ: 7.5")
	assert.InDelta(t, 0.5, confidence, 1e-9)
}

func TestGeneratorHintPerType(t *testing.T) {
	assert.Contains(t, generatorHint("pressemitteilung"), "Pressemitteilung")
	assert.Contains(t, generatorHint("social"), "Social-Media")
	assert.Contains(t, generatorHint("antrag"), "Antrag")
	assert.Contains(t, generatorHint("rede"), "Rede")
	assert.Contains(t, generatorHint("universal"), "allgemeiner")
	assert.Contains(t, generatorHint(""), "allgemeiner")
}

func TestFormatAnswersMatchesQuestionOrder(t *testing.T) {
	st := &State{Questions: &QuestionsData{Questions: []Question{
		{ID: "q1", Prompt: "Welcher Ton?"},
		{ID: "q2", Prompt: "Welche Länge?"},
	}}}
	out := formatAnswers(st, map[string]string{
		"q2":    "kurz",
		"q1":    "sachlich",
		"extra": "Zusatzinfo",
	})
	assert.Regexp(t, `(?s)Welcher Ton\?.*sachlich.*Welche Länge\?.*kurz.*extra.*Zusatzinfo`, out)
}

func TestFormatAnswersSkipsBlank(t *testing.T) {
	st := &State{Questions: &QuestionsData{Questions: []Question{{ID: "q1", Prompt: "Frage?"}}}}
	assert.Empty(t, formatAnswers(st, map[string]string{"q1": "   "}))
}
