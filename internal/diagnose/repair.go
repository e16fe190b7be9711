package diagnose

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/akoval/recipeflow/internal/patches"
	"github.com/akoval/recipeflow/internal/pipeline"
	"github.com/akoval/recipeflow/internal/store"
)

// Repairer applies diagnosis patches to the durable configuration and
// optionally re-runs extraction on the repaired pipeline.
type Repairer struct {
	patches   patches.Store
	extractor *pipeline.Extractor
	records   *store.Store
	logger    *slog.Logger
}

// NewRepairer creates a repairer. extractor may be nil when re-extraction is
// never requested, e.g. when replaying stored patches offline.
func NewRepairer(patchStore patches.Store, extractor *pipeline.Extractor, records *store.Store, logger *slog.Logger) *Repairer {
	return &Repairer{
		patches:   patchStore,
		extractor: extractor,
		records:   records,
		logger:    logger,
	}
}

// Apply merges the diagnosis patches into the patch store and, when reextract
// is set, re-runs extraction for the record and persists the new outcome. The
// returned outcome is nil when no re-extraction was attempted.
func (r *Repairer) Apply(ctx context.Context, d *Diagnosis, rec *store.Record, reextract bool) (*store.ReextractOutcome, error) {
	if d.Patches != nil && !d.Patches.Empty() {
		if err := r.patches.Apply(*d.Patches); err != nil {
			return nil, fmt.Errorf("apply diagnosis patches: %w", err)
		}
		r.logger.Info("diagnosis patches merged",
			"record_id", rec.ID,
			"unit_mappings", len(d.Patches.UnitMapping),
			"cleanup_rules", len(d.Patches.CleanupRules),
			"prompt_append", d.Patches.PromptAppend != "",
		)
	}

	if !reextract {
		return nil, nil
	}
	if r.extractor == nil {
		return nil, fmt.Errorf("re-extraction requested but no extractor configured")
	}

	src := pipeline.Source{
		Title: rec.RawTitle,
		URL:   rec.SourceURL,
		Lines: rec.RawText,
	}

	result, err := r.extractor.Extract(ctx, src)
	if err != nil {
		kind, message, trace, rawResponse := pipeline.Describe(err)
		if markErr := r.records.MarkFailed(ctx, rec.ID, string(kind), message, trace, rawResponse); markErr != nil {
			return nil, fmt.Errorf("persist re-extraction failure: %w", markErr)
		}
		r.logger.Warn("re-extraction failed",
			"record_id", rec.ID,
			"error_kind", kind,
		)
		return &store.ReextractOutcome{
			Status:       store.StatusFailed,
			ErrorKind:    string(kind),
			ErrorMessage: message,
		}, nil
	}

	if err := r.records.MarkSucceeded(ctx, rec.ID, result); err != nil {
		return nil, fmt.Errorf("persist re-extraction success: %w", err)
	}
	r.logger.Info("re-extraction succeeded",
		"record_id", rec.ID,
		"title", result.Title,
	)
	return &store.ReextractOutcome{
		Status: store.StatusSucceeded,
		Recipe: result,
	}, nil
}
