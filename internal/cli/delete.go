package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a record and its diagnoses",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	id, err := parseRecordID(args[0])
	if err != nil {
		return err
	}

	if err := records.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete record %d: %w", id, err)
	}

	fmt.Printf("Record #%d deleted.\n", id)
	return nil
}
