package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medreport/internal/core/domain"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search previously processed documents",
	Long: `Finds chunks of previously processed documents that are semantically
similar to the query, ranked by cosine similarity.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if contextService == nil {
		return errors.New("context service not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	hits, err := contextService.Search(ctx, query, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, hits)
	}
	return outputSearchTable(cmd, hits)
}

// searchResult is the JSON shape of a hit. Vectors are omitted.
type searchResult struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkID    string  `json:"chunk_id"`
	Position   int     `json:"position"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

func outputSearchJSON(cmd *cobra.Command, hits []domain.SearchHit) error {
	results := make([]searchResult, len(hits))
	for i, h := range hits {
		results[i] = searchResult{
			DocumentID: h.Record.DocumentID,
			Filename:   h.Record.Filename,
			ChunkID:    h.Record.ChunkID,
			Position:   h.Record.Position,
			Score:      h.Score,
			Content:    h.Record.Content,
		}
	}
	return writeJSON(cmd, results)
}

func outputSearchTable(cmd *cobra.Command, hits []domain.SearchHit) error {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, h := range hits {
		cmd.Printf("  [%d] %s #%d (%.2f)\n", i+1, h.Record.Filename, h.Record.Position+1, h.Score)
		cmd.Printf("      Document: %s\n", h.Record.DocumentID)
		if snippet := snippet(h.Record.Content, 160); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}
	return nil
}

// snippet flattens whitespace and truncates to n runes.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
