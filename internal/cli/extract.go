package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	extractURL   string
	extractTitle string
	extractQuery string
	extractModel string
	extractJSON  bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract a structured recipe from raw text",
	Long: `Extract reads raw recipe text from a file (or stdin when no file is
given), stores it as a record, and runs LLM extraction on it. A failed
extraction is recorded with its error classification; run "diagnose" on the
record to analyze and repair it.

Examples:
  recipeflow extract recipe.txt --title "Борщ" --url https://example.com/borscht
  cat recipe.txt | recipeflow extract --title "Борщ"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

var reextractCmd = &cobra.Command{
	Use:   "reextract <id>",
	Short: "Re-run extraction for an existing record",
	Long: `Reextract runs extraction again for a stored record using the current
prompt and patch configuration. Only pending and failed records can be
re-extracted.`,
	Args: cobra.ExactArgs(1),
	RunE: runReextract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractURL, "url", "u", "", "source URL of the recipe")
	extractCmd.Flags().StringVarP(&extractTitle, "title", "t", "", "recipe title as scraped")
	extractCmd.Flags().StringVarP(&extractQuery, "query", "q", "", "search query that produced this source")
	extractCmd.Flags().StringVarP(&extractModel, "model", "m", "", "override the extraction model")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "print the resulting record as JSON")

	reextractCmd.Flags().StringVarP(&extractModel, "model", "m", "", "override the extraction model")
	reextractCmd.Flags().BoolVar(&extractJSON, "json", false, "print the resulting record as JSON")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	lines, err := readSourceLines(args)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return fmt.Errorf("no source text provided")
	}

	title := extractTitle
	if title == "" {
		title = lines[0]
	}

	rec, err := svc.ExtractText(ctx, extractQuery, extractURL, title, lines, extractModel)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	if extractJSON {
		return printJSON(rec)
	}
	printRecord(rec)
	return nil
}

func runReextract(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	id, err := parseRecordID(args[0])
	if err != nil {
		return err
	}

	rec, err := svc.Extract(ctx, id, extractModel)
	if err != nil {
		return fmt.Errorf("extract record %d: %w", id, err)
	}

	if extractJSON {
		return printJSON(rec)
	}
	printRecord(rec)
	return nil
}

// readSourceLines reads raw recipe text from the file argument or stdin,
// dropping blank lines.
func readSourceLines(args []string) ([]string, error) {
	var scanner *bufio.Scanner
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, fmt.Errorf("open source file: %w", err)
		}
		defer f.Close()
		scanner = bufio.NewScanner(f)
	} else {
		scanner = bufio.NewScanner(os.Stdin)
	}
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read source text: %w", err)
	}
	return lines, nil
}
