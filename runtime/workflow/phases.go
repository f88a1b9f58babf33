package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/presswerk/presswerk/runtime/enrich"
	"github.com/presswerk/presswerk/runtime/model"
	"github.com/presswerk/presswerk/runtime/prompt"
)

// enrichPhase gathers all contextual material the later phases need, once,
// and caches it in state so subsequent phases never re-fetch.
func (o *Orchestrator) enrichPhase(ctx context.Context, in *Input) Update {
	start := time.Now()
	enriched := &EnrichedContext{Meta: map[string]any{}}

	if o.enricher != nil {
		result, err := o.enricher.Enrich(ctx, enrich.Input{
			Content:     in.Content,
			Locale:      in.Locale,
			DocumentIDs: in.DocumentIDs,
			TextIDs:     in.TextIDs,
		}, enrich.Options{
			WebSearch:  in.WebSearch && !in.Privacy,
			DocumentQA: len(in.DocumentIDs) > 0 || len(in.TextIDs) > 0,
		})
		if err != nil {
			return failUpdate(ErrorKindUpstream, fmt.Sprintf("enrichment failed: %v", err))
		}
		enriched.Documents = result.Documents
		enriched.WebSearchResults, enriched.KnowledgeBase = enrich.Partition(result.Snippets)
		for k, v := range result.Meta {
			enriched.Meta[k] = v
		}
	}

	if o.framingEnabled(in.GeneratorType) && !in.Privacy {
		enriched.Framing = enrich.FetchFraming(ctx, o.searcher, o.logger, in.Content, o.framingColls)
	}
	enriched.Examples = enrich.FetchExamples(ctx, o.examples, o.logger, in.Platforms, 0)

	enriched.Meta["documents"] = len(enriched.Documents)
	enriched.Meta["web_results"] = len(enriched.WebSearchResults)
	enriched.Meta["knowledge"] = len(enriched.KnowledgeBase)
	enriched.Meta["framing"] = len(enriched.Framing)
	enriched.Meta["duration_ms"] = time.Since(start).Milliseconds()

	return Update{Enriched: enriched, Outcome: OutcomeOK}
}

// planPhase generates the content plan.
func (o *Orchestrator) planPhase(ctx context.Context, in *Input, st *State) Update {
	p, err := o.assembler.Assemble(ctx, &prompt.Context{
		SystemRole:         planSystem(in.GeneratorType),
		Request:            in.Content,
		CustomInstructions: in.CustomInstructions,
		Hints:              formatWebResults(webResults(st)),
		Knowledge:          knowledge(st),
		Documents:          documents(st),
		Platforms:          in.Platforms,
		Route:              in.GeneratorType,
		Locale:             in.Locale,
		ExtractKnowledge:   in.ExtractKnowledge,
		OutputFormat:       planOutputFormat,
	})
	if err != nil {
		return failUpdate(ErrorKindPrecondition, fmt.Sprintf("plan prompt assembly failed: %v", err))
	}
	resp, err := o.complete(ctx, in, "plan", p)
	if err != nil {
		return Update{AICalls: 1, Outcome: OutcomeFail, Err: fmt.Sprintf("plan generation failed: %v", err), ErrKind: ErrorKindUpstream}
	}
	planText, summary, confidence := parsePlan(resp.Text)
	if strings.TrimSpace(planText) == "" {
		return Update{AICalls: 1, Outcome: OutcomeFail, Err: "plan generation returned no plan text", ErrKind: ErrorKindMalformed}
	}
	return Update{
		Plan:    &PlanData{OriginalPlan: planText, Summary: summary, Confidence: confidence},
		AICalls: 1,
		Outcome: OutcomeOK,
	}
}

// questionsPhase decides whether user clarification is needed before
// production. Three ways lead directly to production: questions disabled by
// configuration, a confidence-based early exit, and no actionable questions
// even after the rule-based fallback extraction from the plan text.
func (o *Orchestrator) questionsPhase(ctx context.Context, in *Input, st *State) Update {
	if o.disableQuestions {
		return Update{
			Questions: &QuestionsData{NeedsClarification: false},
			Markers:   []string{PhaseMarkerQuestionsSkipped},
			Outcome:   OutcomeSkip,
		}
	}
	if st.Plan == nil {
		return failUpdate(ErrorKindPrecondition, "questions phase requires a plan")
	}
	round := 1
	if st.Questions != nil {
		round = st.Questions.Round + 1
	}
	if st.Plan.Confidence >= o.confidenceSkip {
		o.logger.Info(ctx, "workflow: plan confidence high, skipping questions",
			"run_id", st.RunID, "confidence", st.Plan.Confidence)
		return Update{
			Questions: &QuestionsData{NeedsClarification: false, Round: round},
			Outcome:   OutcomeSkip,
		}
	}

	planText, _ := st.CurrentPlan()
	p, err := o.assembler.Assemble(ctx, &prompt.Context{
		SystemRole:   questionsSystem,
		Request:      questionsRequest(in.Content, planText),
		Route:        in.GeneratorType,
		Locale:       in.Locale,
		OutputFormat: questionsOutputFormat,
	})
	if err != nil {
		return failUpdate(ErrorKindPrecondition, fmt.Sprintf("questions prompt assembly failed: %v", err))
	}
	resp, err := o.complete(ctx, in, "questions", p)
	if err != nil {
		return Update{AICalls: 1, Outcome: OutcomeFail, Err: fmt.Sprintf("questions generation failed: %v", err), ErrKind: ErrorKindUpstream}
	}

	needs, questions, parseErr := parseQuestions(resp.Text)
	if parseErr != nil {
		// Malformed question JSON is recovered locally: fall back to the
		// rule-based extractor over the plan text.
		o.logger.Warn(ctx, "workflow: question payload unparseable, using fallback extractor",
			"run_id", st.RunID, "error", parseErr)
		questions = FallbackQuestions(planText)
		needs = len(questions) > 0
	}
	if needs && len(questions) == 0 {
		questions = FallbackQuestions(planText)
	}
	if !needs || len(questions) == 0 {
		return Update{
			Questions: &QuestionsData{NeedsClarification: false, Round: round},
			AICalls:   1,
			Outcome:   OutcomeSkip,
		}
	}
	return Update{
		Questions: &QuestionsData{NeedsClarification: true, Questions: questions, Round: round},
		AICalls:   1,
		Outcome:   OutcomeAwait,
	}
}

// revisionPhase integrates the user's answers into the plan.
func (o *Orchestrator) revisionPhase(ctx context.Context, in *Input, st *State, answers map[string]string) Update {
	if st.Plan == nil {
		return failUpdate(ErrorKindPrecondition, "revision phase requires a plan")
	}
	if len(answers) == 0 {
		return failUpdate(ErrorKindPrecondition, "revision phase requires answers")
	}
	planText, _ := st.CurrentPlan()
	p, err := o.assembler.Assemble(ctx, &prompt.Context{
		SystemRole:   revisionSystem,
		Request:      revisionRequest(planText, formatAnswers(st, answers)),
		Route:        in.GeneratorType,
		Locale:       in.Locale,
		OutputFormat: planRewriteOutputFormat,
	})
	if err != nil {
		return failUpdate(ErrorKindPrecondition, fmt.Sprintf("revision prompt assembly failed: %v", err))
	}
	resp, err := o.complete(ctx, in, "revision", p)
	if err != nil {
		return Update{AICalls: 1, Outcome: OutcomeFail, Err: fmt.Sprintf("revision generation failed: %v", err), ErrKind: ErrorKindUpstream}
	}
	revised := strings.TrimSpace(resp.Text)
	if revised == "" {
		return Update{AICalls: 1, Outcome: OutcomeFail, Err: "revision returned no plan text", ErrKind: ErrorKindMalformed}
	}
	return Update{RevisedPlan: &RevisedPlanData{RevisedPlan: revised}, AICalls: 1, Outcome: OutcomeOK}
}

// correctionPhase applies free-form user edits to whichever plan version is
// currently authoritative.
func (o *Orchestrator) correctionPhase(ctx context.Context, in *Input, st *State, correction string) Update {
	if st.Plan == nil {
		return failUpdate(ErrorKindPrecondition, "correction phase requires a plan")
	}
	if strings.TrimSpace(correction) == "" {
		return failUpdate(ErrorKindPrecondition, "correction phase requires a correction text")
	}
	planText, _ := st.CurrentPlan()
	p, err := o.assembler.Assemble(ctx, &prompt.Context{
		SystemRole:   correctionSystem,
		Request:      correctionRequest(planText, correction),
		Route:        in.GeneratorType,
		Locale:       in.Locale,
		OutputFormat: planRewriteOutputFormat,
	})
	if err != nil {
		return failUpdate(ErrorKindPrecondition, fmt.Sprintf("correction prompt assembly failed: %v", err))
	}
	resp, err := o.complete(ctx, in, "correction", p)
	if err != nil {
		return Update{AICalls: 1, Outcome: OutcomeFail, Err: fmt.Sprintf("correction generation failed: %v", err), ErrKind: ErrorKindUpstream}
	}
	corrected := strings.TrimSpace(resp.Text)
	if corrected == "" {
		return Update{AICalls: 1, Outcome: OutcomeFail, Err: "correction returned no plan text", ErrKind: ErrorKindMalformed}
	}
	return Update{CorrectedPlan: &CorrectedPlanData{CorrectedPlan: corrected}, AICalls: 1, Outcome: OutcomeOK}
}

// productionPhase generates the final content from the authoritative plan.
func (o *Orchestrator) productionPhase(ctx context.Context, in *Input, st *State) Update {
	if st.Plan == nil {
		return failUpdate(ErrorKindPrecondition, "production phase requires a plan")
	}
	planText, source := st.CurrentPlan()
	start := time.Now()
	p, err := o.assembler.Assemble(ctx, &prompt.Context{
		SystemRole:         productionSystem(in.GeneratorType),
		Request:            in.Content,
		TaskInstructions:   productionTask(planText),
		CustomInstructions: in.CustomInstructions,
		Hints:              formatWebResults(webResults(st)),
		Knowledge:          knowledge(st),
		Documents:          documents(st),
		Examples:           examples(st),
		Platforms:          in.Platforms,
		Route:              in.GeneratorType,
		Locale:             in.Locale,
		ExtractKnowledge:   in.ExtractKnowledge,
	})
	if err != nil {
		return failUpdate(ErrorKindPrecondition, fmt.Sprintf("production prompt assembly failed: %v", err))
	}
	resp, err := o.complete(ctx, in, "production", p)
	if err != nil {
		return Update{AICalls: 1, Outcome: OutcomeFail, Err: fmt.Sprintf("production generation failed: %v", err), ErrKind: ErrorKindUpstream}
	}
	content := strings.TrimSpace(resp.Text)
	if content == "" {
		return Update{AICalls: 1, Outcome: OutcomeFail, Err: "production returned no content", ErrKind: ErrorKindMalformed}
	}
	return Update{
		Production: &ProductionData{
			Content:     content,
			PlanSource:  source,
			Duration:    time.Since(start),
			GeneratedAt: time.Now(),
		},
		AICalls: 1,
		Outcome: OutcomeOK,
	}
}

// complete issues one generation-service call for an assembled prompt.
func (o *Orchestrator) complete(ctx context.Context, in *Input, kind string, p *prompt.Prompt) (*model.Response, error) {
	client := o.client(in)
	if client == nil {
		return nil, fmt.Errorf("no generation service configured")
	}
	return client.Complete(ctx, &model.Request{
		Kind:        kind,
		Model:       o.genOpts.Model,
		System:      p.System,
		Messages:    p.Messages,
		MaxTokens:   o.genOpts.MaxTokens,
		Temperature: o.genOpts.Temperature,
		TopP:        o.genOpts.TopP,
		Tools:       p.Tools,
	})
}

// State accessors tolerating a missing enrichment context.

func documents(st *State) []prompt.Document {
	if st.Enriched == nil {
		return nil
	}
	return st.Enriched.Documents
}

func webResults(st *State) []string {
	if st.Enriched == nil {
		return nil
	}
	return st.Enriched.WebSearchResults
}

func examples(st *State) []prompt.Example {
	if st.Enriched == nil {
		return nil
	}
	return st.Enriched.Examples
}

// knowledge combines knowledge-base snippets with framing snippets in a
// stable order.
func knowledge(st *State) []string {
	if st.Enriched == nil {
		return nil
	}
	out := make([]string, 0, len(st.Enriched.KnowledgeBase)+len(st.Enriched.Framing))
	out = append(out, st.Enriched.KnowledgeBase...)
	out = append(out, st.Enriched.Framing...)
	return out
}

func formatWebResults(results []string) string {
	if len(results) == 0 {
		return ""
	}
	return "AKTUELLE INFORMATIONEN AUS DER WEBRECHERCHE:\n\n" + strings.Join(results, "\n\n")
}

// formatAnswers renders the question/answer pairs for the revision prompt.
// Answers are matched to questions by ID; surplus answers follow sorted by
// key so the rendering is stable.
func formatAnswers(st *State, answers map[string]string) string {
	var b strings.Builder
	seen := make(map[string]struct{}, len(answers))
	if st.Questions != nil {
		for _, q := range st.Questions.Questions {
			a, ok := answers[q.ID]
			if !ok || strings.TrimSpace(a) == "" {
				continue
			}
			seen[q.ID] = struct{}{}
			fmt.Fprintf(&b, "Frage: %s\nAntwort: %s\n\n", q.Prompt, a)
		}
	}
	rest := make([]string, 0, len(answers))
	for k := range answers {
		if _, ok := seen[k]; !ok && strings.TrimSpace(answers[k]) != "" {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		fmt.Fprintf(&b, "Frage: %s\nAntwort: %s\n\n", k, answers[k])
	}
	return strings.TrimSpace(b.String())
}
