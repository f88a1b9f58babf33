// Package enrich defines the enrichment boundary of the pipeline: the
// external collaborator supplying documents and retrieved knowledge, the
// tagged snippet union used to tell web results from knowledge-base results,
// and the value-framing search over the knowledge base.
package enrich

import (
	"context"
	"strings"

	"github.com/presswerk/presswerk/runtime/prompt"
)

type (
	// Collaborator supplies documents and pre-retrieved knowledge snippets
	// for a request. It is treated as opaque; only its result shape matters.
	Collaborator interface {
		Enrich(ctx context.Context, input Input, opts Options) (*Result, error)
	}

	// Input describes what to enrich.
	Input struct {
		// Content is the raw user request text.
		Content string
		// Locale selects language-dependent retrieval.
		Locale string
		// DocumentIDs and TextIDs select stored documents/texts to resolve.
		DocumentIDs []string
		TextIDs     []string
	}

	// Options selects which enrichment sub-sources run.
	Options struct {
		// WebSearch enables web retrieval.
		WebSearch bool
		// DocumentQA enables retrieval over the selected documents.
		DocumentQA bool
	}

	// Result is the collaborator output.
	Result struct {
		// Documents are resolved source documents.
		Documents []prompt.Document
		// Snippets are retrieved knowledge snippets, ideally tagged with
		// their origin kind.
		Snippets []Snippet
		// Meta carries collaborator metadata (counts, timings).
		Meta map[string]any
	}

	// Snippet is one retrieved knowledge snippet tagged with its origin.
	// Collaborators that cannot tag leave Kind empty and the content
	// heuristic decides.
	Snippet struct {
		Kind SnippetKind
		Text string
	}

	// SnippetKind tags snippet provenance.
	SnippetKind string
)

// Snippet provenance kinds.
const (
	// SnippetKindWeb marks snippets retrieved through web search.
	SnippetKindWeb SnippetKind = "web"
	// SnippetKindKB marks snippets retrieved from the knowledge base.
	SnippetKindKB SnippetKind = "kb"
)

// Partition splits snippets into web-search results and knowledge-base
// entries. Tagged snippets are routed by their tag. Untagged snippets fall
// back to inspecting the content for provenance markers; a snippet carrying
// a URL or a web marker counts as a web result. The heuristic is known to
// misclassify knowledge-base text that happens to contain a URL; tag at the
// boundary whenever possible.
func Partition(snippets []Snippet) (web, kb []string) {
	for _, s := range snippets {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		kind := s.Kind
		if kind == "" {
			kind = kindFromContent(text)
		}
		if kind == SnippetKindWeb {
			web = append(web, text)
			continue
		}
		kb = append(kb, text)
	}
	return web, kb
}

func kindFromContent(text string) SnippetKind {
	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "[web]") ||
		strings.Contains(lower, "http://") ||
		strings.Contains(lower, "https://") {
		return SnippetKindWeb
	}
	return SnippetKindKB
}
