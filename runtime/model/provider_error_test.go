package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderErrorMessage(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewProviderError("anthropic", "messages.new", ProviderErrorKindUnavailable, "", true, cause)
	assert.Equal(t, "anthropic unavailable (messages.new): connection reset", err.Error())
	assert.True(t, err.Retryable())
	assert.Equal(t, "anthropic", err.Provider())
	assert.ErrorIs(t, err, cause)
}

func TestProviderErrorDefaults(t *testing.T) {
	err := NewProviderError("openai", "", ProviderErrorKindUnknown, "", false, nil)
	assert.Equal(t, "openai unknown (request): provider error", err.Error())
}

func TestAsProviderError(t *testing.T) {
	inner := NewProviderError("anthropic", "messages.new", ProviderErrorKindAuth, "bad key", false, nil)
	wrapped := fmt.Errorf("plan phase: %w", inner)

	pe, ok := AsProviderError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ProviderErrorKindAuth, pe.Kind())

	_, ok = AsProviderError(errors.New("plain"))
	assert.False(t, ok)
}

func TestNewProviderErrorRequiresProviderAndKind(t *testing.T) {
	assert.Panics(t, func() { NewProviderError("", "op", ProviderErrorKindUnknown, "", false, nil) })
	assert.Panics(t, func() { NewProviderError("anthropic", "op", "", "", false, nil) })
}
