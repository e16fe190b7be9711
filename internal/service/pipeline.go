// Package service wires the extraction pipeline, the diagnosis engine, and
// the persistence layers into the operations the CLI exposes.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/akoval/recipeflow/internal/config"
	"github.com/akoval/recipeflow/internal/diagnose"
	"github.com/akoval/recipeflow/internal/llm"
	"github.com/akoval/recipeflow/internal/patches"
	"github.com/akoval/recipeflow/internal/pipeline"
	"github.com/akoval/recipeflow/internal/store"
)

// Pipeline is the application service. Completion clients are constructed
// per operation so model overrides take effect without rebuilding the
// service.
type Pipeline struct {
	cfg     config.Config
	records *store.Store
	patches patches.Store
	logger  *slog.Logger

	extractionPrompt string
	diagnosisPrompt  string
}

// DiagnoseOptions controls what happens after a diagnosis report is parsed.
// Reextract implies ApplyPatches: re-running on the unpatched pipeline would
// reproduce the same failure.
type DiagnoseOptions struct {
	ApplyPatches bool
	Reextract    bool
	Model        string
}

// New builds the service. Prompt override files from the configuration are
// read once at construction.
func New(cfg config.Config, records *store.Store, patchStore patches.Store, logger *slog.Logger) (*Pipeline, error) {
	p := &Pipeline{
		cfg:     cfg,
		records: records,
		patches: patchStore,
		logger:  logger,
	}

	if cfg.ExtractionPromptFile != "" {
		data, err := os.ReadFile(cfg.ExtractionPromptFile)
		if err != nil {
			return nil, fmt.Errorf("read extraction prompt file: %w", err)
		}
		p.extractionPrompt = string(data)
	}
	if cfg.DiagnosisPromptFile != "" {
		data, err := os.ReadFile(cfg.DiagnosisPromptFile)
		if err != nil {
			return nil, fmt.Errorf("read diagnosis prompt file: %w", err)
		}
		p.diagnosisPrompt = string(data)
	}
	return p, nil
}

// Submit stores raw source text as a new pending record.
func (p *Pipeline) Submit(ctx context.Context, query, sourceURL, rawTitle string, rawText []string) (*store.Record, error) {
	return p.records.Insert(ctx, query, sourceURL, rawTitle, rawText)
}

// ExtractText stores raw source text and immediately runs extraction on it.
func (p *Pipeline) ExtractText(ctx context.Context, query, sourceURL, rawTitle string, rawText []string, model string) (*store.Record, error) {
	rec, err := p.Submit(ctx, query, sourceURL, rawTitle, rawText)
	if err != nil {
		return nil, err
	}
	return p.Extract(ctx, rec.ID, model)
}

// Extract runs extraction for a pending or failed record and persists the
// outcome. An extraction failure is a pipeline result, not an operation
// error: the returned record carries the failure fields and err is nil.
// model overrides the configured extraction model when non-empty.
func (p *Pipeline) Extract(ctx context.Context, id int64, model string) (*store.Record, error) {
	rec, err := p.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status == store.StatusSucceeded {
		return nil, &pipeline.Error{
			Kind:    pipeline.KindInvalidState,
			Message: fmt.Sprintf("record %d already succeeded", id),
		}
	}

	extractor, err := p.newExtractor(model)
	if err != nil {
		return nil, err
	}

	src := pipeline.Source{Title: rec.RawTitle, URL: rec.SourceURL, Lines: rec.RawText}
	result, extractErr := extractor.Extract(ctx, src)
	if extractErr != nil {
		kind, message, trace, rawResponse := pipeline.Describe(extractErr)
		if err := p.records.MarkFailed(ctx, id, string(kind), message, trace, rawResponse); err != nil {
			return nil, err
		}
		p.logger.Warn("extraction failed",
			"record_id", id,
			"error_kind", kind,
		)
		if p.cfg.AutoDiagnose {
			if _, err := p.Diagnose(ctx, id, DiagnoseOptions{}); err != nil {
				p.logger.Warn("automatic diagnosis failed", "record_id", id, "error", err)
			}
		}
	} else {
		if err := p.records.MarkSucceeded(ctx, id, result); err != nil {
			return nil, err
		}
	}

	return p.records.GetByID(ctx, id)
}

// Diagnose analyzes a failed record with the diagnosis model, optionally
// applies the proposed patches and re-extracts, and persists the diagnosis
// together with the re-extraction outcome.
func (p *Pipeline) Diagnose(ctx context.Context, id int64, opts DiagnoseOptions) (*store.Diagnosis, error) {
	rec, err := p.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	examples, err := p.successfulExamples(ctx, id)
	if err != nil {
		return nil, err
	}

	engine, err := p.newEngine(opts.Model)
	if err != nil {
		return nil, err
	}

	d, err := engine.Diagnose(ctx, rec, examples)
	if err != nil {
		return nil, err
	}

	var outcome *store.ReextractOutcome
	if opts.ApplyPatches || opts.Reextract {
		repairer, err := p.newRepairer()
		if err != nil {
			return nil, err
		}
		outcome, err = repairer.Apply(ctx, d, rec, opts.Reextract)
		if err != nil {
			return nil, err
		}
	}

	stored := &store.Diagnosis{
		RecordID:  d.RecordID,
		Report:    d.Report,
		Summary:   d.Summary,
		Model:     d.Model,
		Reextract: outcome,
		CreatedAt: d.CreatedAt,
	}
	if err := p.records.AppendDiagnosis(ctx, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// ApplyStoredDiagnosis replays the patches from an earlier diagnosis without
// another analysis call, optionally re-extracting afterwards.
func (p *Pipeline) ApplyStoredDiagnosis(ctx context.Context, recordID, diagnosisID int64, reextract bool) (*store.ReextractOutcome, error) {
	rec, err := p.records.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	stored, err := p.records.GetDiagnosis(ctx, recordID, diagnosisID)
	if err != nil {
		return nil, err
	}

	d := &diagnose.Diagnosis{
		RecordID: stored.RecordID,
		Report:   stored.Report,
		Summary:  stored.Summary,
		Model:    stored.Model,
		Patches:  patches.ParseSet(stored.Report),
	}
	if d.Patches == nil && !reextract {
		return nil, fmt.Errorf("diagnosis %d proposed no patches", diagnosisID)
	}

	repairer, err := p.newRepairer()
	if err != nil {
		return nil, err
	}
	return repairer.Apply(ctx, d, rec, reextract)
}

// Diagnoses lists stored diagnoses for a record, newest first.
func (p *Pipeline) Diagnoses(ctx context.Context, recordID int64) ([]*store.Diagnosis, error) {
	if _, err := p.records.GetByID(ctx, recordID); err != nil {
		return nil, err
	}
	return p.records.DiagnosesByRecord(ctx, recordID)
}

// successfulExamples collects up to MaxExamples succeeded records, skipping
// the record under diagnosis.
func (p *Pipeline) successfulExamples(ctx context.Context, excludeID int64) ([]*store.Record, error) {
	if p.cfg.MaxExamples <= 0 {
		return nil, nil
	}
	candidates, err := p.records.List(ctx, store.ListFilter{
		Status: store.StatusSucceeded,
		Limit:  p.cfg.MaxExamples + 1,
	})
	if err != nil {
		return nil, err
	}
	examples := make([]*store.Record, 0, p.cfg.MaxExamples)
	for _, rec := range candidates {
		if rec.ID == excludeID {
			continue
		}
		examples = append(examples, rec)
		if len(examples) == p.cfg.MaxExamples {
			break
		}
	}
	return examples, nil
}

func (p *Pipeline) newExtractor(model string) (*pipeline.Extractor, error) {
	client, err := llm.New(p.cfg, model)
	if err != nil {
		return nil, err
	}
	return pipeline.NewExtractor(client, p.patches, p.extractionPrompt, p.cfg.Temperature, p.logger), nil
}

func (p *Pipeline) newEngine(model string) (*diagnose.Engine, error) {
	if model == "" {
		model = p.cfg.DiagnosisModel
	}
	client, err := llm.New(p.cfg, model)
	if err != nil {
		return nil, err
	}
	basePrompt := p.extractionPrompt
	if basePrompt == "" {
		basePrompt = pipeline.DefaultSystemPrompt
	}
	return diagnose.NewEngine(client, p.patches, basePrompt, p.diagnosisPrompt, p.cfg.Temperature, p.logger), nil
}

func (p *Pipeline) newRepairer() (*diagnose.Repairer, error) {
	extractor, err := p.newExtractor("")
	if err != nil {
		return nil, err
	}
	return diagnose.NewRepairer(p.patches, extractor, p.records, p.logger), nil
}
