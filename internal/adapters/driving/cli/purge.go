package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge [document-id]",
	Short: "Remove a document from the index and history",
	Long: `Deletes every embedding record of the document and its stored report.
Later reports no longer draw on it as historical context.`,
	Args: cobra.ExactArgs(1),
	RunE: runPurge,
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	if contextService == nil {
		return errors.New("context service not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := contextService.Purge(ctx, args[0]); err != nil {
		return fmt.Errorf("purging %s: %w", args[0], err)
	}

	cmd.Printf("Purged document %s\n", args[0])
	if n, err := contextService.Stats(ctx); err == nil {
		cmd.Printf("%d chunks remain indexed\n", n)
	}
	return nil
}
