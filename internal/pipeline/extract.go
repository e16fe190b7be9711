// Package pipeline drives one extraction attempt end to end: prompt build,
// completion call, response cleanup, structural parsing, field coercion, and
// schema validation. Failures carry the raw model response for diagnosis.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/akoval/recipeflow/internal/cleanup"
	"github.com/akoval/recipeflow/internal/llm"
	"github.com/akoval/recipeflow/internal/patches"
	"github.com/akoval/recipeflow/internal/recipe"
)

// Extractor runs extraction attempts against a completion client and the
// patch store. It holds no mutable state of its own; the patch snapshot is
// taken fresh on every call so merged patches take effect without restart.
type Extractor struct {
	client      llm.Client
	patches     patches.Store
	basePrompt  string
	temperature float64
	logger      *slog.Logger
}

// NewExtractor creates an extractor. basePrompt may be empty, in which case
// the compiled-in default is used.
func NewExtractor(client llm.Client, store patches.Store, basePrompt string, temperature float64, logger *slog.Logger) *Extractor {
	if basePrompt == "" {
		basePrompt = DefaultSystemPrompt
	}
	return &Extractor{
		client:      client,
		patches:     store,
		basePrompt:  basePrompt,
		temperature: temperature,
		logger:      logger,
	}
}

// BasePrompt returns the extraction system prompt without the patch
// addendum. The diagnostic context shows it to the analysis model.
func (e *Extractor) BasePrompt() string { return e.basePrompt }

// Model returns the extraction model identifier.
func (e *Extractor) Model() string { return e.client.Model() }

// Extract runs a single extraction attempt. On success the returned recipe
// is validated and carries the source URL. On failure the returned error is
// a *Error whose RawResponse field preserves the pre-cleanup model output
// whenever one was received.
func (e *Extractor) Extract(ctx context.Context, src Source) (*recipe.Recipe, error) {
	snap, err := e.patches.Snapshot()
	if err != nil {
		return nil, &Error{Kind: KindInternal, Message: "read patch store", Err: err}
	}

	system := joinPrompt(e.basePrompt, snap.PromptAddendum)
	user := UserPrompt(src)

	e.logger.Debug("calling extraction model",
		"model", e.client.Model(),
		"source_url", src.URL,
		"prompt_addendum", snap.PromptAddendum != "",
		"cleanup_rules", len(snap.CleanupRules),
	)

	raw, err := e.client.Complete(ctx, llm.Request{
		System:      system,
		User:        user,
		Temperature: e.temperature,
		JSONOutput:  true,
	})
	if err != nil {
		return nil, &Error{Kind: Classify(err), Message: "completion call failed", Err: err}
	}
	if strings.TrimSpace(raw) == "" {
		return nil, &Error{Kind: KindEmptyResponse, Message: "model returned no content"}
	}

	cleaned, err := cleanup.Clean(raw, snap.CleanupRules)
	if err != nil {
		return nil, &Error{Kind: Classify(err), Message: "clean model response", RawResponse: raw, Err: err}
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, &Error{
			Kind:            KindInvalidJSON,
			Message:         fmt.Sprintf("parse model response: %v", err),
			RawResponse:     raw,
			CleanedResponse: cleaned,
			Err:             err,
		}
	}

	mapping := recipe.BaseUnitMapping()
	mapping.Merge(snap.UnitMapping)

	rec, err := recipe.FromDocument(doc, mapping)
	if err != nil {
		return nil, &Error{
			Kind:            Classify(err),
			Message:         err.Error(),
			RawResponse:     raw,
			CleanedResponse: cleaned,
			Err:             err,
		}
	}

	if rec.SourceURL == "" {
		rec.SourceURL = src.URL
	}

	e.logger.Info("recipe extracted",
		"title", rec.Title,
		"ingredients", len(rec.Ingredients),
		"instructions", len(rec.Instructions),
		"model", e.client.Model(),
	)
	return rec, nil
}
