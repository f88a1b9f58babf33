package openai

import (
	"context"
	"errors"
	"testing"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presswerk/presswerk/runtime/model"
)

type stubChat struct {
	params *sdk.ChatCompletionNewParams
	resp   *sdk.ChatCompletion
	err    error
}

func (s *stubChat) New(_ context.Context, body sdk.ChatCompletionNewParams, _ ...option.RequestOption) (*sdk.ChatCompletion, error) {
	s.params = &body
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func completion(text string) *sdk.ChatCompletion {
	return &sdk.ChatCompletion{
		ID: "chatcmpl_01",
		Choices: []sdk.ChatCompletionChoice{{
			Message:      sdk.ChatCompletionMessage{Content: text},
			FinishReason: "stop",
		}},
		Usage: sdk.CompletionUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}
}

func newTestClient(t *testing.T, stub *stubChat) *Client {
	t.Helper()
	c, err := New(Options{Client: stub, DefaultModel: "gpt-4o", MaxTokens: 2048})
	require.NoError(t, err)
	return c
}

func TestNewValidates(t *testing.T) {
	_, err := New(Options{DefaultModel: "gpt-4o"})
	assert.Error(t, err)
	_, err = New(Options{Client: &stubChat{}})
	assert.Error(t, err)
	_, err = NewFromAPIKey("", "gpt-4o")
	assert.Error(t, err)
}

func TestCompleteTranslatesResponse(t *testing.T) {
	stub := &stubChat{resp: completion("Die Antwort.")}
	c := newTestClient(t, stub)

	resp, err := c.Complete(context.Background(), &model.Request{
		System:   "Du bist ein Redakteur.",
		Messages: []*model.Message{model.UserText("Hallo")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Die Antwort.", resp.Text)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, model.TokenUsage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30}, resp.Usage)
	assert.Equal(t, "chatcmpl_01", resp.Meta["completion_id"])

	require.NotNil(t, stub.params)
	assert.Equal(t, sdk.ChatModel("gpt-4o"), stub.params.Model)
	assert.Equal(t, int64(2048), stub.params.MaxCompletionTokens.Value)
	// System text leads the conversation, followed by the user turn.
	require.Len(t, stub.params.Messages, 2)
	assert.NotNil(t, stub.params.Messages[0].OfSystem)
	assert.NotNil(t, stub.params.Messages[1].OfUser)
}

func TestCompleteTextOnlyForwarding(t *testing.T) {
	stub := &stubChat{resp: completion("ok")}
	c := newTestClient(t, stub)

	_, err := c.Complete(context.Background(), &model.Request{
		Messages: []*model.Message{
			{Role: model.ConversationRoleUser, Parts: []model.Part{
				model.TextPart{Text: "Lies das Dokument."},
				model.DocumentPart{Name: "bericht.pdf", Data: []byte{1}},
			}},
			{Role: model.ConversationRoleAssistant, Parts: []model.Part{model.ImagePart{Data: []byte{2}}}},
		},
	})
	require.NoError(t, err)
	// Non-text parts are dropped; the assistant turn with only an image
	// vanishes entirely.
	require.Len(t, stub.params.Messages, 1)
	require.NotNil(t, stub.params.Messages[0].OfUser)
}

func TestCompleteRequestOverrides(t *testing.T) {
	stub := &stubChat{resp: completion("ok")}
	c := newTestClient(t, stub)

	_, err := c.Complete(context.Background(), &model.Request{
		Model:       "gpt-4o-mini",
		MaxTokens:   128,
		Temperature: 0.5,
		TopP:        0.8,
		Messages:    []*model.Message{model.UserText("Hallo")},
	})
	require.NoError(t, err)
	assert.Equal(t, sdk.ChatModel("gpt-4o-mini"), stub.params.Model)
	assert.Equal(t, int64(128), stub.params.MaxCompletionTokens.Value)
	assert.InDelta(t, 0.5, stub.params.Temperature.Value, 1e-6)
	assert.InDelta(t, 0.8, stub.params.TopP.Value, 1e-6)
}

func TestCompleteValidationErrors(t *testing.T) {
	c := newTestClient(t, &stubChat{resp: completion("ok")})
	_, err := c.Complete(context.Background(), nil)
	assert.Error(t, err)
	_, err = c.Complete(context.Background(), &model.Request{})
	assert.Error(t, err)
}

func TestCompleteEmptyChoices(t *testing.T) {
	stub := &stubChat{resp: &sdk.ChatCompletion{}}
	c := newTestClient(t, stub)
	_, err := c.Complete(context.Background(), &model.Request{Messages: []*model.Message{model.UserText("x")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestCompleteRateLimited(t *testing.T) {
	stub := &stubChat{err: model.ErrRateLimited}
	c := newTestClient(t, stub)
	_, err := c.Complete(context.Background(), &model.Request{Messages: []*model.Message{model.UserText("x")}})
	assert.ErrorIs(t, err, model.ErrRateLimited)
}

func TestCompleteWrapsProviderError(t *testing.T) {
	cause := errors.New("boom")
	stub := &stubChat{err: cause}
	c := newTestClient(t, stub)
	_, err := c.Complete(context.Background(), &model.Request{Messages: []*model.Message{model.UserText("x")}})
	require.Error(t, err)
	pe, ok := model.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, "openai", pe.Provider())
	assert.ErrorIs(t, err, cause)
}

func TestEncodeTools(t *testing.T) {
	toolParams, err := encodeTools([]*model.ToolDefinition{
		{Name: "extract_questions", Description: "Extrahiert Rückfragen.", InputSchema: map[string]any{"type": "object"}},
		nil,
		{Name: ""},
	})
	require.NoError(t, err)
	require.Len(t, toolParams, 1)
	fn := toolParams[0].OfFunction
	require.NotNil(t, fn)
	assert.Equal(t, "extract_questions", fn.Function.Name)
	assert.Equal(t, "Extrahiert Rückfragen.", fn.Function.Description.Value)
	assert.Equal(t, "object", fn.Function.Parameters["type"])
}
