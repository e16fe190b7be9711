package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var patchesJSON bool

var patchesCmd = &cobra.Command{
	Use:   "patches",
	Short: "Show the current patch configuration",
	Long: `Patches prints the durable configuration overlay accumulated by the
repair loop: learned unit aliases, response cleanup rules, and the prompt
addendum appended to every extraction.`,
	RunE: runPatches,
}

func init() {
	patchesCmd.Flags().BoolVar(&patchesJSON, "json", false, "print the patch snapshot as JSON")
}

func runPatches(cmd *cobra.Command, args []string) error {
	snap, err := patchStore.Snapshot()
	if err != nil {
		return fmt.Errorf("read patch store: %w", err)
	}

	if patchesJSON {
		return printJSON(snap)
	}

	if len(snap.UnitMapping) == 0 && len(snap.CleanupRules) == 0 && snap.PromptAddendum == "" {
		fmt.Println("No patches stored.")
		return nil
	}

	if len(snap.UnitMapping) > 0 {
		fmt.Printf("Unit mappings (%d):\n", len(snap.UnitMapping))
		for alias, unit := range snap.UnitMapping {
			fmt.Printf("  %s -> %s\n", alias, unit)
		}
		fmt.Println()
	}
	if len(snap.CleanupRules) > 0 {
		fmt.Printf("Cleanup rules (%d):\n", len(snap.CleanupRules))
		for _, rule := range snap.CleanupRules {
			kind := "literal"
			if rule.Regex {
				kind = "regex"
			}
			fmt.Printf("  [%s] %q -> %q\n", kind, rule.Pattern, rule.Replacement)
		}
		fmt.Println()
	}
	if snap.PromptAddendum != "" {
		fmt.Printf("Prompt addendum:\n%s\n", snap.PromptAddendum)
	}
	return nil
}
