package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presswerk/presswerk/runtime/enrich"
	"github.com/presswerk/presswerk/runtime/model"
	"github.com/presswerk/presswerk/runtime/prompt"
)

const planWithOptions = `## Aufbau
Option A: Variante eins
Option B: Variante zwei

## Kernbotschaft
Mehr Radwege für alle.

ZUSAMMENFASSUNG: Plan für einen Beitrag zu Radwegen.
KONFIDENZ: 0.4`

// scriptedClient answers by request kind and records the call sequence.
type scriptedClient struct {
	responses map[string]string
	failKinds map[string]error
	kinds     []string
	requests  []*model.Request
}

func (c *scriptedClient) Complete(_ context.Context, req *model.Request) (*model.Response, error) {
	c.kinds = append(c.kinds, req.Kind)
	c.requests = append(c.requests, req)
	if err, ok := c.failKinds[req.Kind]; ok {
		return nil, err
	}
	text, ok := c.responses[req.Kind]
	if !ok {
		return nil, fmt.Errorf("unexpected request kind %q", req.Kind)
	}
	return &model.Response{Text: text}, nil
}

func defaultResponses() map[string]string {
	return map[string]string{
		"plan":       planWithOptions,
		"questions":  `{"needs_clarification": true, "questions": [{"id": "q1", "prompt": "Welcher Ton soll es sein?", "type": "text"}]}`,
		"revision":   "Überarbeiteter Plan.",
		"correction": "Korrigierter Plan.",
		"production": "Fertiger Text.",
	}
}

func newTestOrchestrator(t *testing.T, client model.Client, mod func(*Options)) *Orchestrator {
	t.Helper()
	opts := Options{
		Generator: client,
		Assembler: prompt.NewAssembler(prompt.Options{}),
	}
	if mod != nil {
		mod(&opts)
	}
	o, err := New(opts)
	require.NoError(t, err)
	return o
}

func testInput() *Input {
	return &Input{Content: "Beitrag über neue Radwege", GeneratorType: "social", Platforms: []string{"instagram"}}
}

func TestStartPausesAtQuestions(t *testing.T) {
	client := &scriptedClient{responses: defaultResponses()}
	o := newTestOrchestrator(t, client, nil)

	st := o.Start(context.Background(), testInput())
	require.Equal(t, PhaseQuestions, st.CurrentPhase)
	assert.NotEmpty(t, st.RunID)
	assert.Equal(t, []string{"enrich", "plan", "questions"}, st.PhasesExecuted)
	assert.Equal(t, []string{"plan", "questions"}, client.kinds)
	assert.Equal(t, 2, st.TotalAICalls)
	require.NotNil(t, st.Questions)
	assert.True(t, st.Questions.NeedsClarification)
	require.Len(t, st.Questions.Questions, 1)
	assert.Equal(t, "q1", st.Questions.Questions[0].ID)
	require.NotNil(t, st.Plan)
	assert.Equal(t, "Plan für einen Beitrag zu Radwegen.", st.Plan.Summary)
	assert.InDelta(t, 0.4, st.Plan.Confidence, 1e-9)
}

func TestSubmitAnswersRunsRevisionThenProduction(t *testing.T) {
	client := &scriptedClient{responses: defaultResponses()}
	o := newTestOrchestrator(t, client, nil)
	in := testInput()

	st := o.Start(context.Background(), in)
	require.Equal(t, PhaseQuestions, st.CurrentPhase)

	st = o.SubmitAnswers(context.Background(), in, st, map[string]string{"q1": "locker und direkt"})
	require.Equal(t, PhaseCompleted, st.CurrentPhase)
	assert.Equal(t, []string{"enrich", "plan", "questions", "revision", "production"}, st.PhasesExecuted)
	assert.Equal(t, 4, st.TotalAICalls)
	require.NotNil(t, st.Production)
	assert.Equal(t, "Fertiger Text.", st.Production.Content)
	assert.Equal(t, PlanSourceRevised, st.Production.PlanSource)

	// The revision prompt carries the user's answer.
	revReq := client.requests[2]
	assert.Contains(t, revReq.Messages[len(revReq.Messages)-1].Text(), "locker und direkt")
}

func TestSubmitCorrectionRunsCorrectionThenProduction(t *testing.T) {
	client := &scriptedClient{responses: defaultResponses()}
	o := newTestOrchestrator(t, client, nil)
	in := testInput()

	st := o.Start(context.Background(), in)
	st = o.SubmitCorrection(context.Background(), in, st, "Bitte kürzer und ohne Option B.")
	require.Equal(t, PhaseCompleted, st.CurrentPhase)
	assert.Equal(t, PlanSourceCorrected, st.Production.PlanSource)
	assert.Contains(t, client.kinds, "correction")
	assert.NotContains(t, client.kinds, "revision")
}

func TestDisabledQuestionsSkipWithoutCall(t *testing.T) {
	client := &scriptedClient{responses: defaultResponses()}
	o := newTestOrchestrator(t, client, func(o *Options) { o.DisableQuestions = true })

	st := o.Start(context.Background(), testInput())
	require.Equal(t, PhaseCompleted, st.CurrentPhase)
	assert.Equal(t, []string{"enrich", "plan", "questions", PhaseMarkerQuestionsSkipped, "production"}, st.PhasesExecuted)
	assert.Equal(t, []string{"plan", "production"}, client.kinds, "no generation call for the skipped questions phase")
	assert.Equal(t, 2, st.TotalAICalls)
	assert.Equal(t, PlanSourceOriginal, st.Production.PlanSource)
}

func TestHighConfidenceSkipsQuestions(t *testing.T) {
	responses := defaultResponses()
	responses["plan"] = "Der Plan.\n\nZUSAMMENFASSUNG: Alles klar.\nKONFIDENZ: 0.95"
	client := &scriptedClient{responses: responses}
	o := newTestOrchestrator(t, client, nil)

	st := o.Start(context.Background(), testInput())
	require.Equal(t, PhaseCompleted, st.CurrentPhase)
	assert.Equal(t, []string{"plan", "production"}, client.kinds)
	require.NotNil(t, st.Questions)
	assert.False(t, st.Questions.NeedsClarification)
	assert.Equal(t, 1, st.Questions.Round)
}

func TestMalformedQuestionsFallBackToPlanOptions(t *testing.T) {
	responses := defaultResponses()
	responses["questions"] = "Ich denke, der Plan ist gut so. Keine strukturierte Antwort."
	client := &scriptedClient{responses: responses}
	o := newTestOrchestrator(t, client, nil)

	st := o.Start(context.Background(), testInput())
	require.Equal(t, PhaseQuestions, st.CurrentPhase)
	require.NotNil(t, st.Questions)
	require.Len(t, st.Questions.Questions, 1)
	q := st.Questions.Questions[0]
	assert.Equal(t, "fb1", q.ID)
	assert.Equal(t, QuestionTypeMultipleChoice, q.Type)
	assert.Equal(t, []string{"Variante eins", "Variante zwei"}, q.Options)
	assert.Contains(t, q.Prompt, "Aufbau")
}

func TestNoQuestionsNeededGoesStraightToProduction(t *testing.T) {
	responses := defaultResponses()
	responses["questions"] = `{"needs_clarification": false, "questions": []}`
	responses["plan"] = "Plan ohne Optionen.\n\nZUSAMMENFASSUNG: x\nKONFIDENZ: 0.5"
	client := &scriptedClient{responses: responses}
	o := newTestOrchestrator(t, client, nil)

	st := o.Start(context.Background(), testInput())
	require.Equal(t, PhaseCompleted, st.CurrentPhase)
	assert.Equal(t, []string{"plan", "questions", "production"}, client.kinds)
	assert.Equal(t, PlanSourceOriginal, st.Production.PlanSource)
}

func TestPlanFailureTerminates(t *testing.T) {
	client := &scriptedClient{
		responses: defaultResponses(),
		failKinds: map[string]error{"plan": errors.New("provider down")},
	}
	o := newTestOrchestrator(t, client, nil)

	st := o.Start(context.Background(), testInput())
	require.Equal(t, PhaseError, st.CurrentPhase)
	assert.Equal(t, ErrorKindUpstream, st.ErrorKind)
	assert.Contains(t, st.Error, "provider down")
	assert.Equal(t, []string{"enrich", "plan"}, st.PhasesExecuted)
}

func TestSubmitAnswersRequiresQuestionsPhase(t *testing.T) {
	client := &scriptedClient{responses: defaultResponses()}
	o := newTestOrchestrator(t, client, nil)

	st := &State{RunID: "r1", CurrentPhase: PhaseCompleted}
	st = o.SubmitAnswers(context.Background(), testInput(), st, map[string]string{"q1": "a"})
	require.Equal(t, PhaseError, st.CurrentPhase)
	assert.Equal(t, ErrorKindPrecondition, st.ErrorKind)
}

func TestStartNilInput(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedClient{responses: defaultResponses()}, nil)
	st := o.Start(context.Background(), nil)
	require.Equal(t, PhaseError, st.CurrentPhase)
	assert.Equal(t, ErrorKindPrecondition, st.ErrorKind)
}

type stubEnricher struct {
	result *enrich.Result
	err    error
	opts   enrich.Options
}

func (s *stubEnricher) Enrich(_ context.Context, _ enrich.Input, opts enrich.Options) (*enrich.Result, error) {
	s.opts = opts
	return s.result, s.err
}

func TestEnrichPhaseCachesContext(t *testing.T) {
	en := &stubEnricher{result: &enrich.Result{
		Documents: []prompt.Document{{Kind: prompt.DocumentKindText, Text: "Dok"}},
		Snippets: []enrich.Snippet{
			{Kind: enrich.SnippetKindWeb, Text: "Webfund"},
			{Kind: enrich.SnippetKindKB, Text: "Wissen"},
		},
	}}
	client := &scriptedClient{responses: defaultResponses()}
	o := newTestOrchestrator(t, client, func(o *Options) {
		o.Enricher = en
		o.DisableQuestions = true
	})

	in := testInput()
	in.WebSearch = true
	st := o.Start(context.Background(), in)
	require.Equal(t, PhaseCompleted, st.CurrentPhase)
	require.NotNil(t, st.Enriched)
	assert.True(t, en.opts.WebSearch)
	assert.Equal(t, []string{"Webfund"}, st.Enriched.WebSearchResults)
	assert.Equal(t, []string{"Wissen"}, st.Enriched.KnowledgeBase)
	assert.Len(t, st.Enriched.Documents, 1)

	// Web results surface as a hint section in the plan prompt.
	planReq := client.requests[0]
	assert.Contains(t, planReq.Messages[len(planReq.Messages)-1].Text(), "WEBRECHERCHE")
}

func TestPrivacySuppressesWebSearchAndFraming(t *testing.T) {
	en := &stubEnricher{result: &enrich.Result{}}
	searcher := &stubKnowledgeSearcher{}
	client := &scriptedClient{responses: defaultResponses()}
	o := newTestOrchestrator(t, client, func(o *Options) {
		o.Enricher = en
		o.Searcher = searcher
		o.DisableQuestions = true
	})

	in := testInput()
	in.GeneratorType = "pressemitteilung"
	in.WebSearch = true
	in.Privacy = true
	st := o.Start(context.Background(), in)
	require.Equal(t, PhaseCompleted, st.CurrentPhase)
	assert.False(t, en.opts.WebSearch)
	assert.False(t, searcher.called)
}

func TestFramingRunsForPressTypes(t *testing.T) {
	searcher := &stubKnowledgeSearcher{hits: []enrich.Hit{
		{Source: "Programm", Collection: "werte", Relevance: 0.9, Text: "Leitbild"},
	}}
	client := &scriptedClient{responses: defaultResponses()}
	o := newTestOrchestrator(t, client, func(o *Options) {
		o.Searcher = searcher
		o.DisableQuestions = true
	})

	in := testInput()
	in.GeneratorType = "pressemitteilung"
	st := o.Start(context.Background(), in)
	require.Equal(t, PhaseCompleted, st.CurrentPhase)
	assert.True(t, searcher.called)
	require.Len(t, st.Enriched.Framing, 1)
	assert.Contains(t, st.Enriched.Framing[0], "[Quelle: Programm")

	// Social types do not trigger framing.
	searcher.called = false
	st = o.Start(context.Background(), testInput())
	require.Equal(t, PhaseCompleted, st.CurrentPhase)
	assert.False(t, searcher.called)
}

type stubKnowledgeSearcher struct {
	hits   []enrich.Hit
	called bool
}

func (s *stubKnowledgeSearcher) Search(_ context.Context, _ string, _ enrich.SearchOptions) ([]enrich.Hit, error) {
	s.called = true
	return s.hits, nil
}

func TestInputGeneratorOverride(t *testing.T) {
	override := &scriptedClient{responses: defaultResponses()}
	o := newTestOrchestrator(t, nil, func(o *Options) { o.DisableQuestions = true })

	in := testInput()
	in.Generator = override
	st := o.Start(context.Background(), in)
	require.Equal(t, PhaseCompleted, st.CurrentPhase)
	assert.Equal(t, []string{"plan", "production"}, override.kinds)
}

func TestNoGeneratorFails(t *testing.T) {
	o := newTestOrchestrator(t, nil, nil)
	st := o.Start(context.Background(), testInput())
	require.Equal(t, PhaseError, st.CurrentPhase)
	assert.Equal(t, ErrorKindUpstream, st.ErrorKind)
}
