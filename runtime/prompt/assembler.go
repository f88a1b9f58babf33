// Package prompt implements the assembly engine that turns heterogeneous
// context (request, instructions, documents, knowledge, stylistic examples,
// locale) into a model-ready prompt. Assembly is a deterministic
// transformation with a single side-effecting sub-step, the optional
// knowledge extraction over file attachments.
package prompt

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/presswerk/presswerk/runtime/model"
	"github.com/presswerk/presswerk/runtime/telemetry"
)

// CapsuleLabel prefixes the knowledge capsule produced by extraction when it
// is prepended to the knowledge list.
const CapsuleLabel = "DOKUMENT-FAKTEN (kompakt):"

// sectionDelimiter visibly separates the sections of the combined user
// message.
const sectionDelimiter = "\n\n---\n\n"

// ErrMissingSystemRole is returned when the context carries no system role.
var ErrMissingSystemRole = errors.New("prompt: system role is required")

// ErrEmptyPrompt is returned when assembly yields no message content at all.
var ErrEmptyPrompt = errors.New("prompt: no content to assemble")

type (
	// KnowledgeExtractor converts file attachments into a compact knowledge
	// capsule. Implementations report ok=false when no capsule could be
	// produced; the assembler then retains the original documents unchanged.
	KnowledgeExtractor interface {
		Extract(ctx context.Context, docs []Document, route string) (capsule string, ok bool, err error)
	}

	// Assembler builds prompts from assembly contexts. Collaborators are
	// injected at construction; the zero value is not usable.
	Assembler struct {
		extractor KnowledgeExtractor
		logger    telemetry.Logger
		now       func() time.Time
	}

	// Options configures an Assembler.
	Options struct {
		// Extractor is the optional knowledge-extraction subsystem. When nil,
		// file attachments are always passed through as document blocks.
		Extractor KnowledgeExtractor

		// Logger receives structured assembly logs. Defaults to a no-op.
		Logger telemetry.Logger

		// Now supplies the current time for date rendering. Defaults to
		// time.Now. Injectable so tests can pin the calendar day.
		Now func() time.Time
	}
)

// NewAssembler constructs an Assembler.
func NewAssembler(opts Options) *Assembler {
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Assembler{extractor: opts.Extractor, logger: logger, now: now}
}

// Assemble deterministically produces a Prompt from the given context. The
// message section ordering is fixed: request, task instructions, custom
// instructions, constraints, formatting, stylistic examples, hints,
// background knowledge, output format. Documents precede the combined
// message as their own message of typed blocks.
func (a *Assembler) Assemble(ctx context.Context, pc *Context) (*Prompt, error) {
	if pc == nil || strings.TrimSpace(pc.SystemRole) == "" {
		return nil, ErrMissingSystemRole
	}
	now := a.now()
	locale := pc.Locale

	system := localize(pc.SystemRole, locale, now) + "\n\n" + dateLine(now, locale)

	docs := pc.Documents
	knowledge := pc.Knowledge
	if pc.ExtractKnowledge && a.extractor != nil && hasFileAttachments(docs) {
		capsule, ok, err := a.extractor.Extract(ctx, docs, pc.Route)
		if err != nil {
			// Extraction is an optimization; failure only forgoes compaction.
			a.logger.Warn(ctx, "prompt: knowledge extraction failed, keeping attachments", "error", err)
		}
		if ok && strings.TrimSpace(capsule) != "" {
			withCapsule := make([]string, 0, len(knowledge)+1)
			withCapsule = append(withCapsule, CapsuleLabel+"\n"+capsule)
			withCapsule = append(withCapsule, knowledge...)
			knowledge = withCapsule
			docs = dropFileAttachments(docs)
		}
	}

	request, err := formatRequest(pc.Request, locale, now)
	if err != nil {
		return nil, err
	}

	sections := make([]string, 0, 9)
	appendSection := func(s string) {
		if strings.TrimSpace(s) != "" {
			sections = append(sections, s)
		}
	}
	appendSection(request)
	appendSection(localize(pc.TaskInstructions, locale, now))
	appendSection(localize(pc.CustomInstructions, locale, now))
	appendSection(pc.Constraints)
	appendSection(pc.Formatting)
	if len(pc.Examples) > 0 && examplesAllowed(pc.Platforms) {
		appendSection(formatExamples(pc.Examples))
	}
	appendSection(pc.Hints)
	appendSection(formatKnowledge(knowledge))
	appendSection(pc.OutputFormat)

	var messages []*model.Message
	if docMsg := buildDocumentMessage(docs); docMsg != nil {
		messages = append(messages, docMsg)
	}
	if len(sections) > 0 {
		messages = append(messages, model.UserText(strings.Join(sections, sectionDelimiter)))
	}
	if len(messages) == 0 {
		return nil, ErrEmptyPrompt
	}
	return &Prompt{
		System:   system,
		Messages: messages,
		Tools:    pc.Tools,
		Meta:     pc.Meta,
	}, nil
}

// formatKnowledge joins the knowledge items into the background knowledge
// block. The capsule, when present, is always the first item.
func formatKnowledge(knowledge []string) string {
	items := make([]string, 0, len(knowledge))
	for _, k := range knowledge {
		if strings.TrimSpace(k) == "" {
			continue
		}
		items = append(items, k)
	}
	return strings.Join(items, "\n\n")
}

func hasFileAttachments(docs []Document) bool {
	for _, d := range docs {
		if d.IsFileAttachment() {
			return true
		}
	}
	return false
}

// dropFileAttachments removes file and image attachments while preserving
// text documents (crawled content is never discarded by extraction).
func dropFileAttachments(docs []Document) []Document {
	kept := make([]Document, 0, len(docs))
	for _, d := range docs {
		if d.IsFileAttachment() {
			continue
		}
		kept = append(kept, d)
	}
	return kept
}
