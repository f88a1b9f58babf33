package prompt

import (
	"github.com/presswerk/presswerk/runtime/model"
)

type (
	// Context carries everything one assembly call may draw from. It is
	// constructed fresh per call and never persisted. All fields except
	// SystemRole are optional; unset fields simply produce no section in the
	// assembled prompt.
	Context struct {
		// SystemRole is the system text for the generation. Required;
		// assembly fails without it. Locale placeholders are substituted and
		// the locale-rendered current date is appended.
		SystemRole string

		// Request is the user request. Either a plain string (locale
		// placeholders substituted) or a *StructuredRequest (deterministic
		// field ordering applied).
		Request any

		// TaskInstructions are generator-specific task directions.
		TaskInstructions string

		// CustomInstructions are free-form instructions supplied by the user.
		CustomInstructions string

		// Constraints lists hard requirements the output must satisfy.
		Constraints string

		// Formatting holds output formatting rules.
		Formatting string

		// Hints carries contextual hints gathered during enrichment.
		Hints string

		// OutputFormat describes the expected shape of the model output
		// (e.g. a JSON schema description). Always the last section.
		OutputFormat string

		// Knowledge is the ordered list of background knowledge strings. A
		// knowledge capsule produced by extraction is prepended here.
		Knowledge []string

		// Documents is the ordered list of source documents to expose to the
		// model as typed content blocks.
		Documents []Document

		// Examples are stylistic examples. They are included only when every
		// entry of Platforms is on the example allow-list.
		Examples []Example

		// Platforms names the requested output platforms for this call
		// (e.g. "instagram", "pressemitteilung").
		Platforms []string

		// Route is the generator subtype driving route-specific behavior
		// (probing questions during extraction).
		Route string

		// ExtractKnowledge enables the knowledge-extraction subsystem for
		// file attachments. Extraction failure never fails assembly; the
		// attachments are then passed through unchanged.
		ExtractKnowledge bool

		// Locale selects placeholder substitution and date rendering.
		// Defaults to LocaleGerman.
		Locale string

		// Tools declares tools to pass through to the generation request.
		Tools []*model.ToolDefinition

		// Meta is enrichment metadata passed through to the assembled prompt
		// unchanged.
		Meta map[string]any
	}

	// Document references one source document. Exactly one of URL, Data or
	// Text is expected to be populated depending on Kind.
	Document struct {
		// Kind discriminates how the document is rendered into the prompt.
		Kind DocumentKind

		// Name is the file name or title.
		Name string

		// MediaType is the MIME type for file and image documents.
		MediaType string

		// URL locates an uploaded file (http/https) or embeds it (data URI).
		URL string

		// Data holds the raw bytes when the document was never uploaded.
		Data []byte

		// Text is the plain text content for DocumentKindText documents.
		Text string

		// Crawled marks text documents that originate from crawling a URL.
		// They receive a source attribution prefix and are never subject to
		// extraction.
		Crawled bool

		// CrawlTitle and CrawlURL describe the crawl origin when Crawled.
		CrawlTitle string
		CrawlURL   string

		// VectorSelected marks file documents resolved by a prior
		// vector-search selection step. Their presence suppresses extraction.
		VectorSelected bool
	}

	// DocumentKind discriminates document rendering.
	DocumentKind string

	// Example is one stylistic example retrieved for a platform.
	Example struct {
		// Platform names the platform the example was written for.
		Platform string
		// Title is an optional short title.
		Title string
		// Content is the example text.
		Content string
	}

	// StructuredRequest is a structured user request. Named fields are
	// rendered first in a fixed order, remaining fields follow sorted by key
	// so the rendering is stable across calls.
	StructuredRequest struct {
		// Topic is the subject of the request.
		Topic string
		// Details carries free-form elaboration.
		Details string
		// Platforms lists the requested output platforms.
		Platforms []string
		// Fields holds any further request attributes by name.
		Fields map[string]string
	}

	// Prompt is the assembled, model-ready output: system text plus ordered
	// messages. It is consumed immediately by the generation call and never
	// stored.
	Prompt struct {
		// System is the finalized system text.
		System string
		// Messages is the ordered message list (document message first when
		// documents are present, then the combined user message).
		Messages []*model.Message
		// Tools passes through the tool declarations from the context.
		Tools []*model.ToolDefinition
		// Meta passes through enrichment metadata from the context.
		Meta map[string]any
	}
)

// Document kinds understood by the assembler.
const (
	// DocumentKindFile is an uploaded or raw file attachment.
	DocumentKindFile DocumentKind = "file"
	// DocumentKindImage is an image attachment.
	DocumentKindImage DocumentKind = "image"
	// DocumentKindText is already-extracted plain text (e.g. crawled pages).
	DocumentKindText DocumentKind = "text"
)

// IsFileAttachment reports whether the document needs upload/extraction
// processing. Text documents are already plain text and are always preserved
// verbatim.
func (d Document) IsFileAttachment() bool {
	return d.Kind == DocumentKindFile || d.Kind == DocumentKindImage
}
