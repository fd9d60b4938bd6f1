package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medreport/internal/clinical/assembler"
	"github.com/custodia-labs/medreport/internal/core/domain"
)

var (
	reportsLimit int
	reportsJSON  bool
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Browse report history",
	Long:  `List and show reports generated from previously processed documents.`,
	RunE:  runReportsList,
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List generated reports, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runReportsList,
}

var reportsShowCmd = &cobra.Command{
	Use:   "show [document-id]",
	Short: "Show a stored report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportsShow,
}

func init() {
	reportsCmd.PersistentFlags().BoolVar(&reportsJSON, "json", false, "output as JSON")
	reportsListCmd.Flags().IntVarP(&reportsLimit, "limit", "n", 20, "maximum number of reports")
	reportsCmd.AddCommand(reportsListCmd)
	reportsCmd.AddCommand(reportsShowCmd)
	rootCmd.AddCommand(reportsCmd)
}

func runReportsList(cmd *cobra.Command, _ []string) error {
	if reportService == nil {
		return errNoReportService
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	summaries, err := reportService.List(ctx, reportsLimit)
	if err != nil {
		return fmt.Errorf("listing reports: %w", err)
	}

	if reportsJSON {
		if summaries == nil {
			summaries = []domain.ReportSummary{}
		}
		return writeJSON(cmd, summaries)
	}

	if len(summaries) == 0 {
		cmd.Println("No reports yet.")
		return nil
	}

	for _, s := range summaries {
		conditions := "-"
		if len(s.Conditions) > 0 {
			conditions = strings.Join(s.Conditions, ", ")
		}
		cmd.Printf("%s  %s  %s  %s\n", s.DocumentID, s.CreatedAt.Format("2006-01-02 15:04"), s.Filename, conditions)
	}
	return nil
}

func runReportsShow(cmd *cobra.Command, args []string) error {
	if reportService == nil {
		return errNoReportService
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	report, err := reportService.Get(ctx, args[0])
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("no report for document %q", args[0])
	}
	if err != nil {
		return fmt.Errorf("loading report: %w", err)
	}

	if reportsJSON {
		return writeJSON(cmd, report)
	}
	return assembler.Render(cmd.OutOrStdout(), report)
}
