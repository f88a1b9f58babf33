package middleware

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presswerk/presswerk/runtime/model"
)

type countingClient struct {
	calls int
	err   error
}

func (c *countingClient) Complete(_ context.Context, _ *model.Request) (*model.Response, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &model.Response{Text: "ok"}, nil
}

func TestNewAdaptiveRateLimiterDefaults(t *testing.T) {
	l := NewAdaptiveRateLimiter(0, 0)
	assert.InDelta(t, 60000, l.currentTPM, 1e-9)
	assert.InDelta(t, 60000, l.maxTPM, 1e-9)
	assert.InDelta(t, 6000, l.minTPM, 1e-9)

	l = NewAdaptiveRateLimiter(10000, 5000)
	assert.InDelta(t, 10000, l.maxTPM, 1e-9, "max below initial is clamped up")
}

func TestBackoffHalvesAndClamps(t *testing.T) {
	l := NewAdaptiveRateLimiter(10000, 20000)

	l.backoff()
	assert.InDelta(t, 5000, l.currentTPM, 1e-9)

	for i := 0; i < 10; i++ {
		l.backoff()
	}
	assert.InDelta(t, l.minTPM, l.currentTPM, 1e-9, "budget never drops below the floor")
}

func TestProbeRecoversAdditively(t *testing.T) {
	l := NewAdaptiveRateLimiter(10000, 11000)
	l.backoff() // 5000

	l.probe()
	assert.InDelta(t, 5500, l.currentTPM, 1e-9, "recovery adds 5% of the initial budget")

	for i := 0; i < 100; i++ {
		l.probe()
	}
	assert.InDelta(t, 11000, l.currentTPM, 1e-9, "budget is capped at max")
}

func TestObserveReactsToRateLimitOnly(t *testing.T) {
	l := NewAdaptiveRateLimiter(10000, 10000)

	l.observe(errors.New("boom"))
	assert.InDelta(t, 10000, l.currentTPM, 1e-9, "unrelated errors leave the budget alone")

	l.observe(model.ErrRateLimited)
	assert.InDelta(t, 5000, l.currentTPM, 1e-9)

	l.observe(nil)
	assert.InDelta(t, 5500, l.currentTPM, 1e-9)
}

func TestMiddlewareDelegatesAndObserves(t *testing.T) {
	l := NewAdaptiveRateLimiter(1e6, 1e6)
	next := &countingClient{}
	client := l.Middleware()(next)
	require.NotNil(t, client)

	resp, err := client.Complete(context.Background(), &model.Request{Messages: []*model.Message{model.UserText("Hallo")}})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, 1, next.calls)

	next.err = model.ErrRateLimited
	_, err = client.Complete(context.Background(), &model.Request{Messages: []*model.Message{model.UserText("Hallo")}})
	assert.ErrorIs(t, err, model.ErrRateLimited)
	assert.InDelta(t, 5e5, l.currentTPM, 1e-9, "provider throttling halves the budget")

	assert.Nil(t, l.Middleware()(nil))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 500, estimateTokens(&model.Request{}), "empty requests get the minimal estimate")

	req := &model.Request{
		System: strings.Repeat("a", 300),
		Messages: []*model.Message{
			{Role: model.ConversationRoleUser, Parts: []model.Part{
				model.TextPart{Text: strings.Repeat("b", 300)},
				model.DocumentPart{Data: make([]byte, 300)},
				model.ImagePart{Data: make([]byte, 9000)}, // not counted
			}},
			nil,
		},
	}
	assert.Equal(t, 900/3+500, estimateTokens(req))
}
