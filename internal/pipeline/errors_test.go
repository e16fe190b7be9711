package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akoval/recipeflow/internal/cleanup"
	"github.com/akoval/recipeflow/internal/llm"
	"github.com/akoval/recipeflow/internal/recipe"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"negative amount", recipe.ErrNegativeAmount, KindNegativeAmount},
		{"unparseable amount", recipe.ErrUnparseableAmount, KindUnparseableAmount},
		{"schema", recipe.ErrSchema, KindSchemaViolation},
		{"empty input", cleanup.ErrEmptyInput, KindEmptyResponse},
		{"empty after cleanup", cleanup.ErrEmptyAfterCleanup, KindEmptyAfterCleanup},
		{"timeout", llm.ErrTimeout, KindTimeout},
		{"provider", llm.ErrProvider, KindProvider},
		{"configuration", llm.ErrConfiguration, KindConfiguration},
		{"wrapped sentinel", fmt.Errorf("ingredient %q: %w", "мука", recipe.ErrNegativeAmount), KindNegativeAmount},
		{"unknown", errors.New("boom"), KindInternal},
		{"already classified", &Error{Kind: KindInvalidJSON}, KindInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestDescribe(t *testing.T) {
	err := &Error{
		Kind:        KindInvalidJSON,
		Message:     "parse model response",
		RawResponse: "not json",
		Err:         errors.New("unexpected token"),
	}

	kind, message, trace, rawResponse := Describe(err)
	assert.Equal(t, KindInvalidJSON, kind)
	assert.Equal(t, "parse model response", message)
	assert.Contains(t, trace, "unexpected token")
	assert.Equal(t, "not json", rawResponse)
}

func TestDescribe_PlainError(t *testing.T) {
	kind, message, trace, rawResponse := Describe(errors.New("boom"))
	assert.Equal(t, KindInternal, kind)
	assert.Equal(t, "boom", message)
	assert.Equal(t, "boom", trace)
	assert.Empty(t, rawResponse)
}
