package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <id|uuid>",
	Short: "Show a record with its extraction outcome",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print the record as JSON")
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rec, err := loadRecord(ctx, args[0])
	if err != nil {
		return fmt.Errorf("load record %s: %w", args[0], err)
	}

	if showJSON {
		return printJSON(rec)
	}
	printRecord(rec)
	return nil
}
