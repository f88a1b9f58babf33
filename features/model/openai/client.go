// Package openai provides a model.Client implementation backed by the OpenAI
// Chat Completions API. It translates pipeline requests into chat completion
// calls using the official github.com/openai/openai-go SDK and maps responses
// back to the generic pipeline structures. Only text content is forwarded;
// document and image parts require the Anthropic adapter.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/presswerk/presswerk/runtime/model"
)

// ChatClient captures the subset of the openai-go client used by the adapter.
type ChatClient interface {
	New(ctx context.Context, body sdk.ChatCompletionNewParams, opts ...option.RequestOption) (*sdk.ChatCompletion, error)
}

// Options configures the OpenAI adapter.
type Options struct {
	Client       ChatClient
	DefaultModel string

	// MaxTokens caps completions when a request does not set MaxTokens.
	MaxTokens int
}

// Client implements model.Client via the OpenAI Chat Completions API.
type Client struct {
	chat   ChatClient
	model  string
	maxTok int
}

// New builds an OpenAI-backed model client from the provided options.
func New(opts Options) (*Client, error) {
	if opts.Client == nil {
		return nil, errors.New("openai client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("default model is required")
	}
	return &Client{chat: opts.Client, model: opts.DefaultModel, maxTok: opts.MaxTokens}, nil
}

// NewFromAPIKey constructs a client using the default openai-go HTTP client.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	oc := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(Options{Client: &oc.Chat.Completions, DefaultModel: defaultModel})
}

// Complete renders a chat completion using the configured OpenAI client.
func (c *Client) Complete(ctx context.Context, req *model.Request) (*model.Response, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, errors.New("openai: messages are required")
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.model
	}
	messages := make([]sdk.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, sdk.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		if m == nil {
			continue
		}
		text := m.Text()
		if text == "" {
			continue
		}
		switch m.Role {
		case model.ConversationRoleSystem:
			messages = append(messages, sdk.SystemMessage(text))
		case model.ConversationRoleAssistant:
			messages = append(messages, sdk.AssistantMessage(text))
		case model.ConversationRoleUser:
			messages = append(messages, sdk.UserMessage(text))
		default:
			return nil, fmt.Errorf("openai: unsupported message role %q", m.Role)
		}
	}
	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(modelID),
		Messages: messages,
	}
	if mt := req.MaxTokens; mt > 0 {
		params.MaxCompletionTokens = sdk.Int(int64(mt))
	} else if c.maxTok > 0 {
		params.MaxCompletionTokens = sdk.Int(int64(c.maxTok))
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(float64(req.Temperature))
	}
	if req.TopP > 0 {
		params.TopP = sdk.Float(float64(req.TopP))
	}
	toolParams, err := encodeTools(req.Tools)
	if err != nil {
		return nil, err
	}
	if len(toolParams) > 0 {
		params.Tools = toolParams
	}
	resp, err := c.chat.New(ctx, params)
	if err != nil {
		if isRateLimited(err) {
			return nil, fmt.Errorf("%w: %w", model.ErrRateLimited, err)
		}
		return nil, model.NewProviderError("openai", "chat.completions.new", classify(err), "", false, err)
	}
	return translateResponse(resp)
}

func encodeTools(defs []*model.ToolDefinition) ([]sdk.ChatCompletionToolUnionParam, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	toolParams := make([]sdk.ChatCompletionToolUnionParam, 0, len(defs))
	for _, def := range defs {
		if def == nil || def.Name == "" {
			continue
		}
		fn := shared.FunctionDefinitionParam{Name: def.Name}
		if def.Description != "" {
			fn.Description = sdk.String(def.Description)
		}
		if def.InputSchema != nil {
			data, err := json.Marshal(def.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("openai: marshal tool %q schema: %w", def.Name, err)
			}
			var m map[string]any
			if err := json.Unmarshal(data, &m); err != nil {
				return nil, fmt.Errorf("openai: tool %q schema is not an object: %w", def.Name, err)
			}
			fn.Parameters = shared.FunctionParameters(m)
		}
		toolParams = append(toolParams, sdk.ChatCompletionFunctionTool(fn))
	}
	return toolParams, nil
}

func translateResponse(resp *sdk.ChatCompletion) (*model.Response, error) {
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: response contains no choices")
	}
	var texts []string
	for _, choice := range resp.Choices {
		if choice.Message.Content != "" {
			texts = append(texts, choice.Message.Content)
		}
	}
	out := &model.Response{
		Text:       strings.Join(texts, "\n"),
		StopReason: string(resp.Choices[0].FinishReason),
		Usage: model.TokenUsage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
		Meta: map[string]any{"provider": "openai"},
	}
	if resp.ID != "" {
		out.Meta["completion_id"] = resp.ID
	}
	return out, nil
}

func isRateLimited(err error) bool {
	if errors.Is(err, model.ErrRateLimited) {
		return true
	}
	var apierr *sdk.Error
	if errors.As(err, &apierr) {
		return apierr.StatusCode == 429
	}
	return false
}

func classify(err error) model.ProviderErrorKind {
	var apierr *sdk.Error
	if !errors.As(err, &apierr) {
		return model.ProviderErrorKindUnknown
	}
	switch {
	case apierr.StatusCode == 401 || apierr.StatusCode == 403:
		return model.ProviderErrorKindAuth
	case apierr.StatusCode == 429:
		return model.ProviderErrorKindRateLimited
	case apierr.StatusCode >= 500:
		return model.ProviderErrorKindUnavailable
	case apierr.StatusCode >= 400:
		return model.ProviderErrorKindInvalidRequest
	default:
		return model.ProviderErrorKindUnknown
	}
}
