package diagnose

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akoval/recipeflow/internal/llm"
	"github.com/akoval/recipeflow/internal/patches"
	"github.com/akoval/recipeflow/internal/pipeline"
	"github.com/akoval/recipeflow/internal/recipe"
	"github.com/akoval/recipeflow/internal/store"
)

type fakeClient struct {
	response string
	err      error
	requests []llm.Request
}

func (f *fakeClient) Complete(_ context.Context, req llm.Request) (string, error) {
	f.requests = append(f.requests, req)
	return f.response, f.err
}

func (f *fakeClient) Model() string { return "fake-diagnosis-model" }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func failedRecord() *store.Record {
	return &store.Record{
		ID:           7,
		RawTitle:     "Борщ",
		SourceURL:    "https://example.com/borscht",
		RawText:      []string{"Борщ", "свекла - 2 пуч"},
		Status:       store.StatusFailed,
		ErrorKind:    "SchemaViolation",
		ErrorMessage: "ingredient \"зелень\": unparseable amount",
		RawResponse:  `{"title": "Борщ", "ingredients": [{"name": "зелень", "amount": "пуч"}]}`,
	}
}

const diagnosisResponse = `{
  "analysis": "The model emitted the unit token in the amount field.",
  "root_cause": "Unknown unit alias",
  "recommendations": ["Map the alias to a canonical unit"],
  "summary": "Unknown unit alias broke amount parsing",
  "patches": {
    "unit_mapping": {"пуч": "шт"}
  }
}`

func newTestEngine(client llm.Client, store patches.Store) *Engine {
	if store == nil {
		store = patches.NewMemStore()
	}
	return NewEngine(client, store, pipeline.DefaultSystemPrompt, "", 0.1, discardLogger())
}

func TestDiagnose_ParsesReportAndPatches(t *testing.T) {
	client := &fakeClient{response: diagnosisResponse}
	e := newTestEngine(client, nil)

	d, err := e.Diagnose(context.Background(), failedRecord(), nil)
	require.NoError(t, err)

	assert.Equal(t, int64(7), d.RecordID)
	assert.Equal(t, "Unknown unit alias broke amount parsing", d.Summary)
	assert.Equal(t, "fake-diagnosis-model", d.Model)
	require.NotNil(t, d.Patches)
	assert.Equal(t, map[string]string{"пуч": "шт"}, d.Patches.UnitMapping)
}

func TestDiagnose_FencedReport(t *testing.T) {
	client := &fakeClient{response: "```json\n" + diagnosisResponse + "\n```"}
	e := newTestEngine(client, nil)

	d, err := e.Diagnose(context.Background(), failedRecord(), nil)
	require.NoError(t, err)
	assert.NotNil(t, d.Patches)
}

func TestDiagnose_RequiresFailedRecord(t *testing.T) {
	client := &fakeClient{response: diagnosisResponse}
	e := newTestEngine(client, nil)

	for _, status := range []store.Status{store.StatusPending, store.StatusSucceeded} {
		rec := failedRecord()
		rec.Status = status
		_, err := e.Diagnose(context.Background(), rec, nil)
		var perr *pipeline.Error
		require.True(t, errors.As(err, &perr), "status %s", status)
		assert.Equal(t, pipeline.KindInvalidState, perr.Kind)
	}
	assert.Empty(t, client.requests, "no model call for non-failed records")
}

func TestDiagnose_UnparseableReport(t *testing.T) {
	client := &fakeClient{response: "I think the problem is the prompt."}
	e := newTestEngine(client, nil)

	_, err := e.Diagnose(context.Background(), failedRecord(), nil)
	var perr *pipeline.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, pipeline.KindDiagnosisParse, perr.Kind)
	assert.Equal(t, "I think the problem is the prompt.", perr.RawResponse)
}

func TestDiagnose_ContextIncludesFailureDetail(t *testing.T) {
	patchStore := patches.NewMemStore()
	require.NoError(t, patchStore.Apply(patches.Set{PromptAppend: "Always bare JSON."}))
	client := &fakeClient{response: diagnosisResponse}
	e := newTestEngine(client, patchStore)

	rec := failedRecord()
	servings := 4
	examples := []*store.Record{{
		RawTitle: "Щи",
		Status:   store.StatusSucceeded,
		Recipe: &recipe.Recipe{
			Title:        "Щи",
			Ingredients:  []recipe.Ingredient{{Name: "капуста", Amount: 1, Unit: recipe.KnownUnit("шт")}},
			Instructions: []string{"Сварить."},
			Servings:     &servings,
		},
	}}

	_, err := e.Diagnose(context.Background(), rec, examples)
	require.NoError(t, err)

	require.Len(t, client.requests, 1)
	user := client.requests[0].User
	assert.Contains(t, user, "свекла - 2 пуч")
	assert.Contains(t, user, "SchemaViolation")
	assert.Contains(t, user, rec.RawResponse)
	// The assembled prompt shown to the model includes the patch addendum.
	assert.Contains(t, user, "Always bare JSON.")
	assert.Contains(t, user, "Щи")
}

func TestDiagnose_MissingRawResponseIsMarked(t *testing.T) {
	client := &fakeClient{response: diagnosisResponse}
	e := newTestEngine(client, nil)

	rec := failedRecord()
	rec.RawResponse = ""
	_, err := e.Diagnose(context.Background(), rec, nil)
	require.NoError(t, err)

	require.Len(t, client.requests, 1)
	assert.Contains(t, client.requests[0].User, "Not available.")
}
