package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/akoval/recipeflow/internal/store"
)

var (
	listStatus string
	listLimit  int
	listFrom   string
	listTo     string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List extraction records",
	Long: `List stored records with their status and failure classification.

Examples:
  recipeflow list
  recipeflow list --status failed
  recipeflow list --from 2026-08-01 --to 2026-08-23 --limit 20`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "filter by status (pending, succeeded, failed)")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "max results")
	listCmd.Flags().StringVar(&listFrom, "from", "", "only records created on or after this date (YYYY-MM-DD)")
	listCmd.Flags().StringVar(&listTo, "to", "", "only records created on or before this date (YYYY-MM-DD)")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	filter := store.ListFilter{Limit: listLimit}
	if listStatus != "" {
		status := store.Status(listStatus)
		if !status.Valid() {
			return fmt.Errorf("invalid status %q", listStatus)
		}
		filter.Status = status
	}
	var err error
	if filter.From, err = parseDate(listFrom, false); err != nil {
		return err
	}
	if filter.To, err = parseDate(listTo, true); err != nil {
		return err
	}

	recs, err := records.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	if len(recs) == 0 {
		fmt.Println("No records found.")
		return nil
	}

	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, []string{
			strconv.FormatInt(rec.ID, 10),
			string(rec.Status),
			truncate(rec.RawTitle, 40),
			rec.ErrorKind,
			rec.CreatedAt.Local().Format(time.DateTime),
		})
	}
	fmt.Println(renderTable(
		[]string{"ID", "STATUS", "TITLE", "ERROR", "CREATED"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	))
	return nil
}
