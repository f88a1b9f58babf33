// Package model defines the provider-agnostic contract the generation
// pipeline uses to invoke text models. It abstracts over chat completion APIs
// (Anthropic, OpenAI, ...) so phases can request generations without coupling
// to specific SDKs. Implementations translate these normalized types into
// provider-specific formats.
package model

import (
	"context"
	"errors"
)

type (
	// Client is the contract the workflow phases and the extraction subsystem
	// use to invoke model calls. Implementations wrap provider SDKs and
	// translate Request/Response to provider-specific formats. Clients must be
	// safe for concurrent use across requests.
	Client interface {
		// Complete sends a generation request to the model provider and returns
		// the generated response. Returns an error if the provider is
		// unavailable, quota is exceeded, or the request is malformed.
		Complete(ctx context.Context, req *Request) (*Response, error)
	}

	// Request captures the normalized parameters for one model invocation.
	Request struct {
		// Kind tags the request with the pipeline step that issued it
		// ("plan", "questions", "revision", "production", "extraction").
		// Providers may use it for routing or logging; it is never sent
		// to the model.
		Kind string

		// Model identifies the target model using the provider-specific
		// identifier. Empty selects the provider's configured default.
		Model string

		// System is the system text for the call. May be empty for providers
		// that do not distinguish system content.
		System string

		// Messages is the ordered conversation provided to the model. Order
		// matters; the assembly engine guarantees a stable section ordering
		// inside each message.
		Messages []*Message

		// MaxTokens caps the number of completion tokens the model can
		// generate. Zero means use the provider default.
		MaxTokens int

		// Temperature controls sampling temperature. Zero means provider
		// default.
		Temperature float32

		// TopP sets the nucleus-sampling parameter. Zero means provider
		// default.
		TopP float32

		// Tools describes tool schemas exposed to the model. Empty if the
		// model should not invoke tools.
		Tools []*ToolDefinition
	}

	// Response wraps the generated content returned by the provider.
	Response struct {
		// Text is the concatenated assistant text produced by the model.
		Text string

		// Usage reports token usage when the provider makes it available.
		Usage TokenUsage

		// StopReason explains why the model stopped generating. Values are
		// provider-specific and may be empty.
		StopReason string

		// Meta carries provider-specific metadata such as request IDs.
		Meta map[string]any
	}

	// Message is one conversation entry with a role and a list of typed
	// content parts.
	Message struct {
		// Role is one of the ConversationRole constants.
		Role ConversationRole

		// Parts holds the ordered content blocks of the message.
		Parts []Part
	}

	// ConversationRole identifies the author of a message.
	ConversationRole string

	// Part is the marker interface implemented by all message content blocks.
	Part interface{ isPart() }

	// TextPart is a plain text content block.
	TextPart struct {
		// Text is the block content.
		Text string
	}

	// DocumentPart references a document the model should read. Exactly one
	// of URL or Data should be set: URL points at a retrievable location
	// (or a data URI), Data embeds the raw bytes.
	DocumentPart struct {
		// Name is the display name of the document (file name or title).
		Name string
		// MediaType is the MIME type of the document (e.g. "application/pdf").
		MediaType string
		// URL locates the document. May be a data URI; some providers reject
		// those, which callers must account for before issuing the request.
		URL string
		// Data embeds the raw document bytes when no URL is available.
		Data []byte
	}

	// ImagePart is an image content block, either by URL or inline bytes.
	ImagePart struct {
		// MediaType is the image MIME type (e.g. "image/png").
		MediaType string
		// URL locates the image. May be a data URI.
		URL string
		// Data embeds the raw image bytes when no URL is available.
		Data []byte
	}

	// ToolDefinition describes a tool schema passed to model providers for
	// function calling.
	ToolDefinition struct {
		// Name is the identifier presented to the model.
		Name string
		// Description documents the tool for prompting purposes.
		Description string
		// InputSchema is the JSON Schema describing the tool's input.
		InputSchema any
	}

	// TokenUsage records prompt/completion token counts when reported by the
	// provider. All fields are zero if the provider doesn't report usage.
	TokenUsage struct {
		// InputTokens counts tokens consumed by the prompt.
		InputTokens int
		// OutputTokens counts tokens produced by the model.
		OutputTokens int
		// TotalTokens reports the aggregate when the provider computes it
		// separately; prefer it over summing the other two.
		TotalTokens int
	}
)

// Conversation roles understood by the pipeline.
const (
	ConversationRoleSystem    ConversationRole = "system"
	ConversationRoleUser      ConversationRole = "user"
	ConversationRoleAssistant ConversationRole = "assistant"
)

func (TextPart) isPart()     {}
func (DocumentPart) isPart() {}
func (ImagePart) isPart()    {}

// ErrRateLimited wraps provider throttling failures so middleware can react
// without parsing provider-specific errors.
var ErrRateLimited = errors.New("model: rate limited")

// Text returns the concatenated text of all TextParts of the message.
func (m *Message) Text() string {
	if m == nil {
		return ""
	}
	var out string
	for _, p := range m.Parts {
		if t, ok := p.(TextPart); ok {
			out += t.Text
		}
	}
	return out
}

// UserText is a convenience constructor for a single-part user message.
func UserText(text string) *Message {
	return &Message{Role: ConversationRoleUser, Parts: []Part{TextPart{Text: text}}}
}
