package workflow

import "github.com/presswerk/presswerk/runtime/model"

// Input is the immutable request driving one workflow run. It is created
// once per request and never mutated by phases.
type Input struct {
	// Content is the raw user request text.
	Content string `json:"content"`

	// Locale selects placeholder substitution and date rendering
	// ("de" default, "en").
	Locale string `json:"locale,omitempty"`

	// GeneratorType is the generator subtype ("pressemitteilung", "social",
	// "antrag", "rede", "universal"). It selects system roles and the
	// extraction probing route.
	GeneratorType string `json:"generator_type,omitempty"`

	// Platforms names the requested output platforms. Drives the stylistic
	// example gating.
	Platforms []string `json:"platforms,omitempty"`

	// DocumentIDs and TextIDs select stored documents/texts for enrichment.
	DocumentIDs []string `json:"document_ids,omitempty"`
	TextIDs     []string `json:"text_ids,omitempty"`

	// CustomInstructions are free-form user instructions included in every
	// assembled prompt.
	CustomInstructions string `json:"custom_instructions,omitempty"`

	// WebSearch enables web retrieval during enrichment.
	WebSearch bool `json:"web_search,omitempty"`

	// Privacy disables external retrieval (web search and value framing)
	// for sensitive requests.
	Privacy bool `json:"privacy,omitempty"`

	// ExtractKnowledge enables the knowledge-extraction subsystem for file
	// attachments.
	ExtractKnowledge bool `json:"extract_knowledge,omitempty"`

	// Generator optionally overrides the orchestrator's generation service
	// for this run.
	Generator model.Client `json:"-"`
}
