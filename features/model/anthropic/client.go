// Package anthropic provides a model.Client implementation backed by the
// Anthropic Claude Messages API. It translates pipeline requests into
// anthropic.Message calls using github.com/anthropics/anthropic-sdk-go and
// maps responses back into the generic pipeline structures. Because it
// accepts document references as input content it doubles as the
// extraction-call collaborator.
package anthropic

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/presswerk/presswerk/runtime/model"
)

type (
	// MessagesClient captures the subset of the Anthropic SDK client used by
	// the adapter. It is satisfied by *sdk.MessageService so callers can pass
	// either a real client or a mock in tests.
	MessagesClient interface {
		New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
	}

	// Options configures optional adapter behavior.
	Options struct {
		// DefaultModel is the Claude model identifier used when
		// model.Request.Model is empty. Required.
		DefaultModel string

		// MaxTokens sets the default completion cap when a request does not
		// specify MaxTokens. When zero or negative, callers must set
		// Request.MaxTokens explicitly.
		MaxTokens int

		// Temperature is used when a request does not specify Temperature.
		Temperature float64

		// TopP is used when a request does not specify TopP.
		TopP float64
	}

	// Client implements model.Client on top of Anthropic Claude Messages.
	Client struct {
		msg          MessagesClient
		defaultModel string
		maxTok       int
		temp         float64
		topP         float64
	}
)

// New builds an Anthropic-backed model client.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("default model identifier is required")
	}
	return &Client{
		msg:          msg,
		defaultModel: opts.DefaultModel,
		maxTok:       opts.MaxTokens,
		temp:         opts.Temperature,
		topP:         opts.TopP,
	}, nil
}

// NewFromAPIKey constructs a client using the default Anthropic HTTP client.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, Options{DefaultModel: defaultModel})
}

// Complete issues a Messages.New request and translates the response.
func (c *Client) Complete(ctx context.Context, req *model.Request) (*model.Response, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	msg, err := c.msg.New(ctx, *params)
	if err != nil {
		if isRateLimited(err) {
			return nil, fmt.Errorf("%w: %w", model.ErrRateLimited, err)
		}
		return nil, model.NewProviderError("anthropic", "messages.new", classify(err), "", isTransient(err), err)
	}
	return translateResponse(msg), nil
}

func (c *Client) prepareRequest(req *model.Request) (*sdk.MessageNewParams, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, errors.New("anthropic: messages are required")
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTok
	}
	if maxTokens <= 0 {
		return nil, errors.New("anthropic: max_tokens must be positive")
	}
	msgs, system, err := encodeMessages(req)
	if err != nil {
		return nil, err
	}
	params := sdk.MessageNewParams{
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
		Model:     sdk.Model(modelID),
	}
	if len(system) > 0 {
		params.System = system
	}
	if t := c.effectiveTemperature(req.Temperature); t > 0 {
		params.Temperature = sdk.Float(t)
	}
	if p := c.effectiveTopP(req.TopP); p > 0 {
		params.TopP = sdk.Float(p)
	}
	tools, err := encodeTools(req.Tools)
	if err != nil {
		return nil, err
	}
	if len(tools) > 0 {
		params.Tools = tools
	}
	return &params, nil
}

func (c *Client) effectiveTemperature(requested float32) float64 {
	if requested > 0 {
		return float64(requested)
	}
	return c.temp
}

func (c *Client) effectiveTopP(requested float32) float64 {
	if requested > 0 {
		return float64(requested)
	}
	return c.topP
}

func encodeMessages(req *model.Request) ([]sdk.MessageParam, []sdk.TextBlockParam, error) {
	var system []sdk.TextBlockParam
	if req.System != "" {
		system = append(system, sdk.TextBlockParam{Text: req.System})
	}
	conversation := make([]sdk.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m == nil {
			continue
		}
		if m.Role == model.ConversationRoleSystem {
			if text := m.Text(); text != "" {
				system = append(system, sdk.TextBlockParam{Text: text})
			}
			continue
		}
		blocks := make([]sdk.ContentBlockParamUnion, 0, len(m.Parts))
		for _, part := range m.Parts {
			block, err := encodePart(part)
			if err != nil {
				return nil, nil, err
			}
			if block != nil {
				blocks = append(blocks, *block)
			}
		}
		if len(blocks) == 0 {
			continue
		}
		switch m.Role {
		case model.ConversationRoleUser:
			conversation = append(conversation, sdk.NewUserMessage(blocks...))
		case model.ConversationRoleAssistant:
			conversation = append(conversation, sdk.NewAssistantMessage(blocks...))
		default:
			return nil, nil, fmt.Errorf("anthropic: unsupported message role %q", m.Role)
		}
	}
	if len(conversation) == 0 {
		return nil, nil, errors.New("anthropic: at least one user/assistant message is required")
	}
	return conversation, system, nil
}

func encodePart(part model.Part) (*sdk.ContentBlockParamUnion, error) {
	switch v := part.(type) {
	case model.TextPart:
		if v.Text == "" {
			return nil, nil
		}
		block := sdk.NewTextBlock(v.Text)
		return &block, nil
	case model.DocumentPart:
		return encodeDocument(v)
	case model.ImagePart:
		return encodeImage(v)
	default:
		return nil, fmt.Errorf("anthropic: unsupported part type %T", part)
	}
}

func encodeDocument(v model.DocumentPart) (*sdk.ContentBlockParamUnion, error) {
	doc := sdk.DocumentBlockParam{}
	if v.Name != "" {
		doc.Title = sdk.String(v.Name)
	}
	data := v.Data
	mediaType := v.MediaType
	switch {
	case isHTTPURL(v.URL):
		doc.Source = sdk.DocumentBlockParamSourceUnion{
			OfURL: &sdk.URLPDFSourceParam{URL: v.URL},
		}
	case strings.HasPrefix(v.URL, "data:"):
		var err error
		mediaType, data, err = parseDataURI(v.URL)
		if err != nil {
			return nil, err
		}
		fallthrough
	default:
		if len(data) == 0 {
			return nil, fmt.Errorf("anthropic: document %q has neither URL nor data", v.Name)
		}
		if strings.HasPrefix(mediaType, "text/") {
			doc.Source = sdk.DocumentBlockParamSourceUnion{
				OfText: &sdk.PlainTextSourceParam{Data: string(data)},
			}
			break
		}
		doc.Source = sdk.DocumentBlockParamSourceUnion{
			OfBase64: &sdk.Base64PDFSourceParam{Data: base64.StdEncoding.EncodeToString(data)},
		}
	}
	return &sdk.ContentBlockParamUnion{OfDocument: &doc}, nil
}

func encodeImage(v model.ImagePart) (*sdk.ContentBlockParamUnion, error) {
	img := sdk.ImageBlockParam{}
	data := v.Data
	mediaType := v.MediaType
	switch {
	case isHTTPURL(v.URL):
		img.Source = sdk.ImageBlockParamSourceUnion{
			OfURL: &sdk.URLImageSourceParam{URL: v.URL},
		}
	case strings.HasPrefix(v.URL, "data:"):
		var err error
		mediaType, data, err = parseDataURI(v.URL)
		if err != nil {
			return nil, err
		}
		fallthrough
	default:
		if len(data) == 0 {
			return nil, errors.New("anthropic: image has neither URL nor data")
		}
		img.Source = sdk.ImageBlockParamSourceUnion{
			OfBase64: &sdk.Base64ImageSourceParam{
				Data:      base64.StdEncoding.EncodeToString(data),
				MediaType: sdk.Base64ImageSourceMediaType(mediaType),
			},
		}
	}
	return &sdk.ContentBlockParamUnion{OfImage: &img}, nil
}

func encodeTools(defs []*model.ToolDefinition) ([]sdk.ToolUnionParam, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	toolList := make([]sdk.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		if def == nil || def.Name == "" {
			continue
		}
		schema, err := toolInputSchema(def.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("anthropic: tool %q schema: %w", def.Name, err)
		}
		u := sdk.ToolUnionParamOfTool(schema, def.Name)
		if u.OfTool != nil && def.Description != "" {
			u.OfTool.Description = sdk.String(def.Description)
		}
		toolList = append(toolList, u)
	}
	return toolList, nil
}

func toolInputSchema(schema any) (sdk.ToolInputSchemaParam, error) {
	if schema == nil {
		return sdk.ToolInputSchemaParam{}, nil
	}
	var raw json.RawMessage
	switch v := schema.(type) {
	case json.RawMessage:
		raw = v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return sdk.ToolInputSchemaParam{}, err
		}
		raw = data
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return sdk.ToolInputSchemaParam{}, err
	}
	return sdk.ToolInputSchemaParam{ExtraFields: m}, nil
}

func translateResponse(msg *sdk.Message) *model.Response {
	resp := &model.Response{Meta: map[string]any{"provider": "anthropic"}}
	var texts []string
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			texts = append(texts, block.Text)
		}
	}
	resp.Text = strings.Join(texts, "\n")
	if u := msg.Usage; u.InputTokens != 0 || u.OutputTokens != 0 {
		resp.Usage = model.TokenUsage{
			InputTokens:  int(u.InputTokens),
			OutputTokens: int(u.OutputTokens),
			TotalTokens:  int(u.InputTokens + u.OutputTokens),
		}
	}
	resp.StopReason = string(msg.StopReason)
	if msg.ID != "" {
		resp.Meta["message_id"] = msg.ID
	}
	return resp
}

// parseDataURI splits "data:<mediatype>;base64,<payload>" into its media
// type and decoded bytes.
func parseDataURI(uri string) (string, []byte, error) {
	rest := strings.TrimPrefix(uri, "data:")
	idx := strings.Index(rest, ",")
	if idx < 0 {
		return "", nil, errors.New("anthropic: malformed data URI")
	}
	meta, payload := rest[:idx], rest[idx+1:]
	mediaType := strings.TrimSuffix(meta, ";base64")
	if !strings.HasSuffix(meta, ";base64") {
		return mediaType, []byte(payload), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("anthropic: decode data URI: %w", err)
	}
	return mediaType, data, nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
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

func isTransient(err error) bool {
	var apierr *sdk.Error
	if errors.As(err, &apierr) {
		return apierr.StatusCode == 429 || apierr.StatusCode >= 500
	}
	return false
}
