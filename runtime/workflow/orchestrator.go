// Package workflow implements the generation pipeline: a fixed sequence of
// phases (enrich, plan, questions, revision/correction, production) executed
// over a shared state record. Phases call the assembly engine and the
// generation service, fold partial updates into state and short-circuit on
// first failure. The legal transition set lives in an explicit table; see
// machine.go.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/presswerk/presswerk/runtime/enrich"
	"github.com/presswerk/presswerk/runtime/model"
	"github.com/presswerk/presswerk/runtime/prompt"
	"github.com/presswerk/presswerk/runtime/telemetry"
)

const defaultConfidenceSkip = 0.85

type (
	// Orchestrator executes workflow runs. All collaborators are injected;
	// the orchestrator itself holds no per-run state and is safe for
	// concurrent use.
	Orchestrator struct {
		generator model.Client
		enricher  enrich.Collaborator
		searcher  enrich.KnowledgeSearcher
		examples  enrich.ExampleProvider
		assembler *prompt.Assembler
		logger    telemetry.Logger
		metrics   telemetry.Metrics
		tracer    telemetry.Tracer

		disableQuestions bool
		confidenceSkip   float64
		framingTypes     map[string]struct{}
		framingColls     []string
		genOpts          GenerationOptions
	}

	// Options configures an Orchestrator.
	Options struct {
		// Generator is the generation service. Required unless every Input
		// carries its own.
		Generator model.Client

		// Enricher supplies documents and knowledge. Optional; without it
		// the enrichment phase produces an empty context.
		Enricher enrich.Collaborator

		// Searcher is the knowledge-base collaborator used for value
		// framing. Optional.
		Searcher enrich.KnowledgeSearcher

		// Examples retrieves stylistic examples per platform. Optional.
		Examples enrich.ExampleProvider

		// Assembler builds model-ready prompts. Required.
		Assembler *prompt.Assembler

		// Logger, Metrics and Tracer default to no-ops.
		Logger  telemetry.Logger
		Metrics telemetry.Metrics
		Tracer  telemetry.Tracer

		// DisableQuestions bypasses the questions phase entirely; the
		// workflow then runs plan → production directly.
		DisableQuestions bool

		// ConfidenceSkip is the plan confidence at or above which the
		// questions phase exits early without a generation call.
		// Defaults to 0.85.
		ConfidenceSkip float64

		// FramingGeneratorTypes lists the generator types for which value
		// framing runs during enrichment. Defaults to the press routes
		// (pressemitteilung, antrag, rede).
		FramingGeneratorTypes []string

		// FramingCollections restricts the framing search.
		FramingCollections []string

		// Generation tunes the generation-service calls.
		Generation GenerationOptions
	}

	// GenerationOptions carries the sampling parameters passed to the
	// generation service.
	GenerationOptions struct {
		Model       string
		MaxTokens   int
		Temperature float32
		TopP        float32
	}

	// resume carries the per-resume arguments of the re-entry points.
	resume struct {
		answers    map[string]string
		correction string
	}
)

// New constructs an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Assembler == nil {
		return nil, errors.New("workflow: assembler is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}
	confidenceSkip := opts.ConfidenceSkip
	if confidenceSkip <= 0 {
		confidenceSkip = defaultConfidenceSkip
	}
	framingTypes := opts.FramingGeneratorTypes
	if framingTypes == nil {
		framingTypes = []string{"pressemitteilung", "antrag", "rede"}
	}
	ft := make(map[string]struct{}, len(framingTypes))
	for _, t := range framingTypes {
		ft[t] = struct{}{}
	}
	return &Orchestrator{
		generator:        opts.Generator,
		enricher:         opts.Enricher,
		searcher:         opts.Searcher,
		examples:         opts.Examples,
		assembler:        opts.Assembler,
		logger:           logger,
		metrics:          metrics,
		tracer:           tracer,
		disableQuestions: opts.DisableQuestions,
		confidenceSkip:   confidenceSkip,
		framingTypes:     ft,
		framingColls:     opts.FramingCollections,
		genOpts:          opts.Generation,
	}, nil
}

// Start runs a new workflow from enrichment until it completes, fails or
// pauses at the questions phase awaiting user answers.
func (o *Orchestrator) Start(ctx context.Context, in *Input) *State {
	st := &State{RunID: newRunID(), CurrentPhase: PhaseEnrich}
	if in == nil {
		return o.terminate(st, ErrorKindPrecondition, "workflow input is required")
	}
	return o.run(ctx, in, st, resume{})
}

// SubmitAnswers resumes a workflow paused at the questions phase. The
// answers map question IDs to the user's responses. The workflow continues
// through revision and production.
func (o *Orchestrator) SubmitAnswers(ctx context.Context, in *Input, st *State, answers map[string]string) *State {
	if st == nil || in == nil {
		return o.terminate(&State{}, ErrorKindPrecondition, "workflow state and input are required")
	}
	if st.CurrentPhase != PhaseQuestions {
		return o.terminate(st, ErrorKindPrecondition,
			fmt.Sprintf("answers can only be submitted while awaiting questions, not in phase %q", st.CurrentPhase))
	}
	st.CurrentPhase = PhaseRevision
	return o.run(ctx, in, st, resume{answers: answers})
}

// SubmitCorrection resumes a workflow paused at the questions phase by
// applying free-form user edits to the authoritative plan instead of
// answering the questions. Only one of revision or correction runs per
// request.
func (o *Orchestrator) SubmitCorrection(ctx context.Context, in *Input, st *State, correction string) *State {
	if st == nil || in == nil {
		return o.terminate(&State{}, ErrorKindPrecondition, "workflow state and input are required")
	}
	if st.CurrentPhase != PhaseQuestions {
		return o.terminate(st, ErrorKindPrecondition,
			fmt.Sprintf("corrections can only be submitted while awaiting questions, not in phase %q", st.CurrentPhase))
	}
	st.CurrentPhase = PhaseCorrection
	return o.run(ctx, in, st, resume{correction: correction})
}

// run drives the phase loop. Phases execute strictly in sequence; no phase
// begins before the previous update has been folded in.
func (o *Orchestrator) run(ctx context.Context, in *Input, st *State, rs resume) *State {
	for {
		switch st.CurrentPhase {
		case PhaseCompleted, PhaseError:
			return st
		}
		phase := st.CurrentPhase
		phaseCtx, span := o.tracer.Start(ctx, "workflow."+string(phase))
		start := time.Now()

		var u Update
		switch phase {
		case PhaseEnrich:
			u = o.enrichPhase(phaseCtx, in)
		case PhasePlan:
			u = o.planPhase(phaseCtx, in, st)
		case PhaseQuestions:
			u = o.questionsPhase(phaseCtx, in, st)
		case PhaseRevision:
			u = o.revisionPhase(phaseCtx, in, st, rs.answers)
		case PhaseCorrection:
			u = o.correctionPhase(phaseCtx, in, st, rs.correction)
		case PhaseProduction:
			u = o.productionPhase(phaseCtx, in, st)
		default:
			u = failUpdate(ErrorKindPrecondition, fmt.Sprintf("unknown phase %q", phase))
		}

		duration := time.Since(start)
		span.End()
		st.apply(u)
		st.recordPhase(string(phase), duration)
		st.PhasesExecuted = append(st.PhasesExecuted, u.Markers...)
		o.metrics.RecordTimer("workflow.phase_duration", duration, "phase", string(phase))
		if u.AICalls > 0 {
			o.metrics.IncCounter("workflow.ai_calls", float64(u.AICalls), "phase", string(phase))
		}

		next, err := nextPhase(phase, u.Outcome)
		if err != nil {
			return o.terminate(st, ErrorKindPrecondition, err.Error())
		}
		if u.Outcome == OutcomeFail {
			o.logger.Error(ctx, "workflow: phase failed", "run_id", st.RunID, "phase", string(phase), "error", u.Err)
			st.CurrentPhase = PhaseError
			return st
		}
		o.logger.Info(ctx, "workflow: phase done",
			"run_id", st.RunID, "phase", string(phase), "next", string(next), "duration_ms", duration.Milliseconds())
		st.CurrentPhase = next
		if u.Outcome == OutcomeAwait {
			return st
		}
	}
}

// client resolves the generation service for the run.
func (o *Orchestrator) client(in *Input) model.Client {
	if in.Generator != nil {
		return in.Generator
	}
	return o.generator
}

func (o *Orchestrator) framingEnabled(generatorType string) bool {
	_, ok := o.framingTypes[generatorType]
	return ok
}

func (o *Orchestrator) terminate(st *State, kind ErrorKind, msg string) *State {
	st.Error = msg
	st.ErrorKind = kind
	st.CurrentPhase = PhaseError
	return st
}

func failUpdate(kind ErrorKind, msg string) Update {
	return Update{Outcome: OutcomeFail, Err: msg, ErrKind: kind}
}

func newRunID() string { return uuid.NewString() }
