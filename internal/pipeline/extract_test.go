package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akoval/recipeflow/internal/cleanup"
	"github.com/akoval/recipeflow/internal/llm"
	"github.com/akoval/recipeflow/internal/patches"
)

// fakeClient returns canned responses and records the requests it received.
type fakeClient struct {
	response string
	err      error
	requests []llm.Request
}

func (f *fakeClient) Complete(_ context.Context, req llm.Request) (string, error) {
	f.requests = append(f.requests, req)
	return f.response, f.err
}

func (f *fakeClient) Model() string { return "fake-model" }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const validResponse = `{
  "title": "Борщ",
  "ingredients": [
    {"name": "свекла", "amount": 2, "unit": "шт", "original_text": "2 свеклы"}
  ],
  "instructions": ["Сварить бульон.", "Добавить овощи."],
  "servings": 4
}`

func testSource() Source {
	return Source{
		Title: "Борщ",
		URL:   "https://example.com/borscht",
		Lines: []string{"Борщ", "свекла - 2 шт", "Сварить бульон."},
	}
}

func newTestExtractor(client llm.Client, store patches.Store) *Extractor {
	if store == nil {
		store = patches.NewMemStore()
	}
	return NewExtractor(client, store, "", 0.1, discardLogger())
}

func TestExtract_Success(t *testing.T) {
	client := &fakeClient{response: validResponse}
	e := newTestExtractor(client, nil)

	rec, err := e.Extract(context.Background(), testSource())
	require.NoError(t, err)

	assert.Equal(t, "Борщ", rec.Title)
	require.Len(t, rec.Ingredients, 1)
	assert.Equal(t, "шт", rec.Ingredients[0].Unit.Token)
	// The source URL is stamped when the model omits it.
	assert.Equal(t, "https://example.com/borscht", rec.SourceURL)

	require.Len(t, client.requests, 1)
	assert.True(t, client.requests[0].JSONOutput)
	assert.Contains(t, client.requests[0].User, "свекла - 2 шт")
}

func TestExtract_FencedResponse(t *testing.T) {
	client := &fakeClient{response: "```json\n" + validResponse + "\n```"}
	e := newTestExtractor(client, nil)

	rec, err := e.Extract(context.Background(), testSource())
	require.NoError(t, err)
	assert.Equal(t, "Борщ", rec.Title)
}

func TestExtract_EmptyResponse(t *testing.T) {
	client := &fakeClient{response: "   \n  "}
	e := newTestExtractor(client, nil)

	_, err := e.Extract(context.Background(), testSource())
	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, KindEmptyResponse, perr.Kind)
}

func TestExtract_InvalidJSONKeepsRawResponse(t *testing.T) {
	raw := "Here is the recipe you asked for: {\"title\": ...}"
	client := &fakeClient{response: raw}
	e := newTestExtractor(client, nil)

	_, err := e.Extract(context.Background(), testSource())
	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, KindInvalidJSON, perr.Kind)
	// The raw response is preserved verbatim for diagnosis.
	assert.Equal(t, raw, perr.RawResponse)
}

func TestExtract_SchemaViolation(t *testing.T) {
	client := &fakeClient{response: `{"title": "Борщ"}`}
	e := newTestExtractor(client, nil)

	_, err := e.Extract(context.Background(), testSource())
	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, KindSchemaViolation, perr.Kind)
	assert.NotEmpty(t, perr.RawResponse)
}

func TestExtract_ProviderError(t *testing.T) {
	client := &fakeClient{err: llm.ErrProvider}
	e := newTestExtractor(client, nil)

	_, err := e.Extract(context.Background(), testSource())
	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, KindProvider, perr.Kind)
}

func TestExtract_PatchesTakeEffectWithoutRestart(t *testing.T) {
	store := patches.NewMemStore()
	client := &fakeClient{response: validResponse}
	e := newTestExtractor(client, store)

	_, err := e.Extract(context.Background(), testSource())
	require.NoError(t, err)

	require.NoError(t, store.Apply(patches.Set{PromptAppend: "Never use markdown fences."}))

	_, err = e.Extract(context.Background(), testSource())
	require.NoError(t, err)

	require.Len(t, client.requests, 2)
	assert.NotContains(t, client.requests[0].System, "Never use markdown fences.")
	assert.Contains(t, client.requests[1].System, "Never use markdown fences.")
}

func TestExtract_CleanupRulesApplied(t *testing.T) {
	store := patches.NewMemStore()
	require.NoError(t, store.Apply(patches.Set{
		CleanupRules: []cleanup.Rule{{Pattern: "NOISE", Replacement: ""}},
	}))
	client := &fakeClient{response: "NOISE" + validResponse}
	e := newTestExtractor(client, store)

	rec, err := e.Extract(context.Background(), testSource())
	require.NoError(t, err)
	assert.Equal(t, "Борщ", rec.Title)
}

func TestExtract_LearnedUnitAlias(t *testing.T) {
	store := patches.NewMemStore()
	require.NoError(t, store.Apply(patches.Set{
		UnitMapping: map[string]string{"пуч": "шт"},
	}))
	client := &fakeClient{response: `{
	  "title": "Салат",
	  "ingredients": [{"name": "зелень", "amount": 1, "unit": "пуч"}],
	  "instructions": ["Нарезать."]
	}`}
	e := newTestExtractor(client, store)

	rec, err := e.Extract(context.Background(), testSource())
	require.NoError(t, err)
	require.Len(t, rec.Ingredients, 1)
	assert.True(t, rec.Ingredients[0].Unit.Known)
	assert.Equal(t, "шт", rec.Ingredients[0].Unit.Token)
}
