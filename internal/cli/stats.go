package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/akoval/recipeflow/internal/store"
)

var (
	statsFrom string
	statsTo   string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show extraction statistics",
	Long: `Stats aggregates record counts by status and by error kind, optionally
restricted to a creation-date range.

Examples:
  recipeflow stats
  recipeflow stats --from 2026-08-01 --to 2026-08-23`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsFrom, "from", "", "only records created on or after this date (YYYY-MM-DD)")
	statsCmd.Flags().StringVar(&statsTo, "to", "", "only records created on or before this date (YYYY-MM-DD)")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	from, err := parseDate(statsFrom, false)
	if err != nil {
		return err
	}
	to, err := parseDate(statsTo, true)
	if err != nil {
		return err
	}

	stats, err := records.Stats(ctx, from, to)
	if err != nil {
		return fmt.Errorf("aggregate stats: %w", err)
	}

	fmt.Printf("Total records: %d\n\n", stats.Total)

	if len(stats.ByStatus) > 0 {
		rows := make([][]string, 0, len(stats.ByStatus))
		for _, status := range []store.Status{store.StatusPending, store.StatusSucceeded, store.StatusFailed} {
			if count, ok := stats.ByStatus[status]; ok {
				rows = append(rows, []string{string(status), strconv.Itoa(count)})
			}
		}
		fmt.Println(renderTable(
			[]string{"STATUS", "COUNT"},
			rows,
			[]columnAlignment{alignLeft, alignRight},
		))
	}

	if len(stats.ByErrorKind) > 0 {
		kinds := make([]string, 0, len(stats.ByErrorKind))
		for kind := range stats.ByErrorKind {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)

		rows := make([][]string, 0, len(kinds))
		for _, kind := range kinds {
			rows = append(rows, []string{kind, strconv.Itoa(stats.ByErrorKind[kind])})
		}
		fmt.Println()
		fmt.Println(renderTable(
			[]string{"ERROR KIND", "COUNT"},
			rows,
			[]columnAlignment{alignLeft, alignRight},
		))
	}
	return nil
}
