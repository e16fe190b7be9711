// Package diagnose turns failed extraction records into structured analysis
// reports and applies the configuration patches those reports propose.
package diagnose

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/akoval/recipeflow/internal/cleanup"
	"github.com/akoval/recipeflow/internal/llm"
	"github.com/akoval/recipeflow/internal/patches"
	"github.com/akoval/recipeflow/internal/pipeline"
	"github.com/akoval/recipeflow/internal/recipe"
	"github.com/akoval/recipeflow/internal/store"
)

// Diagnosis is the parsed analysis of one failed record. Patches is nil when
// the report proposed none.
type Diagnosis struct {
	RecordID  int64
	Report    map[string]any
	Summary   string
	Model     string
	Patches   *patches.Set
	CreatedAt time.Time
}

// Engine runs failure analysis against a completion client. The patch store
// is read-only here; applying proposals is the Repairer's job.
type Engine struct {
	client          llm.Client
	patches         patches.Store
	basePrompt      string
	diagnosisPrompt string
	temperature     float64
	logger          *slog.Logger
}

// NewEngine creates an analysis engine. basePrompt is the extraction system
// prompt shown to the analysis model as context; diagnosisPrompt may be empty
// to use the compiled-in default.
func NewEngine(client llm.Client, store patches.Store, basePrompt, diagnosisPrompt string, temperature float64, logger *slog.Logger) *Engine {
	if diagnosisPrompt == "" {
		diagnosisPrompt = DefaultDiagnosisPrompt
	}
	return &Engine{
		client:          client,
		patches:         store,
		basePrompt:      basePrompt,
		diagnosisPrompt: diagnosisPrompt,
		temperature:     temperature,
		logger:          logger,
	}
}

// Diagnose analyzes a failed record. examples are successful records whose
// payloads are shown to the model as reference output. Only failed records
// can be diagnosed.
func (e *Engine) Diagnose(ctx context.Context, rec *store.Record, examples []*store.Record) (*Diagnosis, error) {
	if rec.Status != store.StatusFailed {
		return nil, &pipeline.Error{
			Kind:    pipeline.KindInvalidState,
			Message: fmt.Sprintf("record %d is %s, only failed records can be diagnosed", rec.ID, rec.Status),
		}
	}

	user, err := e.buildContext(rec, examples)
	if err != nil {
		return nil, &pipeline.Error{Kind: pipeline.KindInternal, Message: "build diagnosis context", Err: err}
	}

	e.logger.Debug("calling diagnosis model",
		"model", e.client.Model(),
		"record_id", rec.ID,
		"error_kind", rec.ErrorKind,
		"examples", len(examples),
	)

	raw, err := e.client.Complete(ctx, llm.Request{
		System:      e.diagnosisPrompt,
		User:        user,
		Temperature: e.temperature,
		JSONOutput:  true,
	})
	if err != nil {
		return nil, &pipeline.Error{Kind: pipeline.Classify(err), Message: "diagnosis call failed", Err: err}
	}
	if strings.TrimSpace(raw) == "" {
		return nil, &pipeline.Error{Kind: pipeline.KindEmptyResponse, Message: "diagnosis model returned no content"}
	}

	cleaned := cleanup.StripFences(raw)

	var report map[string]any
	if err := json.Unmarshal([]byte(cleaned), &report); err != nil {
		return nil, &pipeline.Error{
			Kind:        pipeline.KindDiagnosisParse,
			Message:     fmt.Sprintf("parse diagnosis report: %v", err),
			RawResponse: raw,
			Err:         err,
		}
	}

	d := &Diagnosis{
		RecordID:  rec.ID,
		Report:    report,
		Model:     e.client.Model(),
		Patches:   patches.ParseSet(report),
		CreatedAt: time.Now().UTC(),
	}
	if summary, ok := report["summary"].(string); ok {
		d.Summary = summary
	}

	e.logger.Info("record diagnosed",
		"record_id", rec.ID,
		"error_kind", rec.ErrorKind,
		"has_patches", d.Patches != nil,
		"model", d.Model,
	)
	return d, nil
}

// buildContext renders the failure report shown to the analysis model. The
// sections mirror what a human would want in front of them: the source, the
// failure, the prompt in force, and the current normalization configuration.
func (e *Engine) buildContext(rec *store.Record, examples []*store.Record) (string, error) {
	snap, err := e.patches.Snapshot()
	if err != nil {
		return "", fmt.Errorf("read patch store: %w", err)
	}

	mapping := recipe.BaseUnitMapping()
	mapping.Merge(snap.UnitMapping)
	mappingJSON, err := json.MarshalIndent(mapping.Flat(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal unit mapping: %w", err)
	}
	rulesJSON, err := json.MarshalIndent(snap.CleanupRules, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal cleanup rules: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Extraction Failure Report\n\n")

	fmt.Fprintf(&b, "## Source\n\nTitle: %s\nURL: %s\n\n```\n%s\n```\n\n",
		rec.RawTitle, rec.SourceURL, strings.Join(rec.RawText, "\n"))

	fmt.Fprintf(&b, "## Failure\n\nKind: %s\nMessage: %s\n\n", rec.ErrorKind, rec.ErrorMessage)
	if rec.ErrorTrace != "" && rec.ErrorTrace != rec.ErrorMessage {
		fmt.Fprintf(&b, "Trace:\n```\n%s\n```\n\n", rec.ErrorTrace)
	}

	b.WriteString("## Raw Model Response\n\n")
	if rec.RawResponse != "" {
		fmt.Fprintf(&b, "```\n%s\n```\n\n", rec.RawResponse)
	} else {
		b.WriteString("Not available.\n\n")
	}

	prompt := joinPrompt(e.basePrompt, snap.PromptAddendum)
	fmt.Fprintf(&b, "## Extraction System Prompt\n\n```\n%s\n```\n\n", prompt)

	fmt.Fprintf(&b, "## Unit Mapping\n\n```json\n%s\n```\n\n", mappingJSON)
	fmt.Fprintf(&b, "## Cleanup Rules\n\n```json\n%s\n```\n\n", rulesJSON)

	if len(examples) > 0 {
		b.WriteString("## Successful Extraction Examples\n\n")
		for i, ex := range examples {
			if ex.Recipe == nil {
				continue
			}
			payload, err := json.MarshalIndent(ex.Recipe, "", "  ")
			if err != nil {
				return "", fmt.Errorf("marshal example recipe: %w", err)
			}
			fmt.Fprintf(&b, "### Example %d: %s\n\n```json\n%s\n```\n\n", i+1, ex.RawTitle, payload)
		}
	}

	return b.String(), nil
}

func joinPrompt(base, addendum string) string {
	if addendum == "" {
		return base
	}
	return base + "\n\n" + addendum
}
