package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/akoval/recipeflow/internal/store"
)

// loadRecord resolves either a numeric id or a record UUID.
func loadRecord(ctx context.Context, arg string) (*store.Record, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return records.GetByID(ctx, id)
	}
	return records.GetByUUID(ctx, arg)
}

func parseRecordID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid record id %q", arg)
	}
	return id, nil
}

// parseDate accepts YYYY-MM-DD. endOfDay extends the bound to the last
// instant of that day so --to is inclusive.
func parseDate(s string, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// printRecord renders one record with its outcome in human form.
func printRecord(rec *store.Record) {
	fmt.Printf("Record #%d (%s)\n", rec.ID, rec.Status)
	fmt.Printf("  Title:   %s\n", rec.RawTitle)
	if rec.SourceURL != "" {
		fmt.Printf("  URL:     %s\n", rec.SourceURL)
	}
	if rec.Query != "" {
		fmt.Printf("  Query:   %s\n", rec.Query)
	}
	fmt.Printf("  Created: %s\n", rec.CreatedAt.Local().Format(time.RFC3339))

	switch rec.Status {
	case store.StatusSucceeded:
		r := rec.Recipe
		if r == nil {
			return
		}
		fmt.Printf("\n%s\n", r.Title)
		if r.Servings != nil {
			fmt.Printf("Servings: %d\n", *r.Servings)
		}
		if r.CookingTime != nil {
			fmt.Printf("Cooking time: %d min\n", *r.CookingTime)
		}
		fmt.Println("\nIngredients:")
		for _, ing := range r.Ingredients {
			fmt.Printf("  - %s: %s %s\n", ing.Name, formatAmount(ing.Amount), ing.Unit)
		}
		fmt.Println("\nInstructions:")
		for i, step := range r.Instructions {
			fmt.Printf("  %d. %s\n", i+1, step)
		}
	case store.StatusFailed:
		fmt.Printf("\n  Error kind:    %s\n", rec.ErrorKind)
		fmt.Printf("  Error message: %s\n", rec.ErrorMessage)
		if rec.RawResponse != "" {
			fmt.Printf("  Raw response:  %s\n", truncate(rec.RawResponse, 200))
		}
	}
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
