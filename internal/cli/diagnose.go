package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/akoval/recipeflow/internal/service"
	"github.com/akoval/recipeflow/internal/store"
)

var (
	diagnoseApply     bool
	diagnoseReextract bool
	diagnoseModel     string
	diagnoseJSON      bool
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <id>",
	Short: "Analyze a failed extraction with the diagnosis model",
	Long: `Diagnose sends a failed record's source text, error classification, and
raw model response to the diagnosis model, stores the resulting report, and
optionally applies the proposed patches.

--reextract implies --apply-patches: the record is re-extracted on the
patched pipeline and the outcome is stored with the diagnosis.

Examples:
  recipeflow diagnose 12
  recipeflow diagnose 12 --apply-patches
  recipeflow diagnose 12 --reextract`,
	Args: cobra.ExactArgs(1),
	RunE: runDiagnose,
}

var analysesCmd = &cobra.Command{
	Use:   "analyses <id>",
	Short: "List stored diagnoses for a record, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyses,
}

var applyPatchesCmd = &cobra.Command{
	Use:   "apply-patches <record-id> <diagnosis-id>",
	Short: "Re-apply the patches from a stored diagnosis",
	Long: `Apply-patches merges the patch proposals of an earlier diagnosis into the
patch store without another analysis call. Useful after resetting the patch
directory or when a diagnosis was run without --apply-patches.`,
	Args: cobra.ExactArgs(2),
	RunE: runApplyPatches,
}

func init() {
	diagnoseCmd.Flags().BoolVarP(&diagnoseApply, "apply-patches", "a", false, "merge proposed patches into the patch store")
	diagnoseCmd.Flags().BoolVarP(&diagnoseReextract, "reextract", "r", false, "apply patches and re-run extraction")
	diagnoseCmd.Flags().StringVarP(&diagnoseModel, "model", "m", "", "override the diagnosis model")
	diagnoseCmd.Flags().BoolVar(&diagnoseJSON, "json", false, "print the diagnosis as JSON")

	applyPatchesCmd.Flags().BoolVarP(&diagnoseReextract, "reextract", "r", false, "re-run extraction after applying")
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	id, err := parseRecordID(args[0])
	if err != nil {
		return err
	}

	d, err := svc.Diagnose(ctx, id, service.DiagnoseOptions{
		ApplyPatches: diagnoseApply,
		Reextract:    diagnoseReextract,
		Model:        diagnoseModel,
	})
	if err != nil {
		return fmt.Errorf("diagnose record %d: %w", id, err)
	}

	if diagnoseJSON {
		return printJSON(d)
	}
	printDiagnosis(d)
	return nil
}

func runAnalyses(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	id, err := parseRecordID(args[0])
	if err != nil {
		return err
	}

	diagnoses, err := svc.Diagnoses(ctx, id)
	if err != nil {
		return fmt.Errorf("list diagnoses for record %d: %w", id, err)
	}
	if len(diagnoses) == 0 {
		fmt.Println("No diagnoses stored for this record.")
		return nil
	}

	rows := make([][]string, 0, len(diagnoses))
	for _, d := range diagnoses {
		reextract := ""
		if d.Reextract != nil {
			reextract = string(d.Reextract.Status)
		}
		rows = append(rows, []string{
			strconv.FormatInt(d.ID, 10),
			truncate(d.Summary, 60),
			d.Model,
			reextract,
			d.CreatedAt.Local().Format(time.DateTime),
		})
	}
	fmt.Println(renderTable(
		[]string{"ID", "SUMMARY", "MODEL", "REEXTRACT", "CREATED"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	))
	return nil
}

func runApplyPatches(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	recordID, err := parseRecordID(args[0])
	if err != nil {
		return err
	}
	diagnosisID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || diagnosisID <= 0 {
		return fmt.Errorf("invalid diagnosis id %q", args[1])
	}

	outcome, err := svc.ApplyStoredDiagnosis(ctx, recordID, diagnosisID, diagnoseReextract)
	if err != nil {
		return fmt.Errorf("apply diagnosis %d: %w", diagnosisID, err)
	}

	fmt.Println("Patches applied.")
	if outcome != nil {
		printReextractOutcome(outcome)
	}
	return nil
}

func printDiagnosis(d *store.Diagnosis) {
	fmt.Printf("Diagnosis #%d for record #%d (%s)\n", d.ID, d.RecordID, d.Model)
	if d.Summary != "" {
		fmt.Printf("\nSummary: %s\n", d.Summary)
	}
	if analysis, ok := d.Report["analysis"].(string); ok && analysis != "" {
		fmt.Printf("\nAnalysis:\n%s\n", analysis)
	}
	if rootCause, ok := d.Report["root_cause"].(string); ok && rootCause != "" {
		fmt.Printf("\nRoot cause: %s\n", rootCause)
	}
	if recs, ok := d.Report["recommendations"].([]any); ok && len(recs) > 0 {
		fmt.Println("\nRecommendations:")
		for _, r := range recs {
			if s, ok := r.(string); ok {
				fmt.Printf("  - %s\n", s)
			}
		}
	}
	if _, ok := d.Report["patches"].(map[string]any); ok {
		fmt.Println("\nThe report proposes patches. Run with --apply-patches or use apply-patches to merge them.")
	}
	if d.Reextract != nil {
		printReextractOutcome(d.Reextract)
	}
}

func printReextractOutcome(outcome *store.ReextractOutcome) {
	switch outcome.Status {
	case store.StatusSucceeded:
		title := ""
		if outcome.Recipe != nil {
			title = outcome.Recipe.Title
		}
		fmt.Printf("\nRe-extraction succeeded: %s\n", title)
	case store.StatusFailed:
		fmt.Printf("\nRe-extraction failed: %s: %s\n", outcome.ErrorKind, outcome.ErrorMessage)
	}
}
