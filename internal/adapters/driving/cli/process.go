package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/medreport/internal/adapters/driving/tui"
	"github.com/custodia-labs/medreport/internal/clinical/assembler"
	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driven"
	"github.com/custodia-labs/medreport/internal/core/ports/driving"
)

var (
	processJSON  bool
	processStdin bool
	processName  string
	processPlain bool

	processFollowUp string
)

var processCmd = &cobra.Command{
	Use:   "process [files...]",
	Short: "Generate reports from clinical documents",
	Long: `Runs each document through the pipeline: text extraction, normalisation,
chunking, historical context retrieval, indexing, clinical extraction,
recommendations and report assembly.

Supported formats: .pdf, .txt, .docx, .jpg, .jpeg, .png, .webp
Images are read with the tesseract OCR engine.

A single file on an interactive terminal shows live progress and then the
report. Use --plain for line output, or --json for machine-readable output.
--follow-up replaces the follow-up date found in the documents.

Examples:
  medreport process visit.pdf
  medreport process march.txt april.txt --json
  cat notes.txt | medreport process --stdin --name notes.txt
  medreport process visit.pdf --follow-up 2025-06-01`,
	RunE: runProcess,
}

func init() {
	processCmd.Flags().BoolVar(&processJSON, "json", false, "output reports as JSON")
	processCmd.Flags().BoolVar(&processStdin, "stdin", false, "read document text from standard input")
	processCmd.Flags().StringVar(&processName, "name", "stdin.txt", "filename to record for --stdin input")
	processCmd.Flags().BoolVar(&processPlain, "plain", false, "print progress lines instead of the interactive view")
	processCmd.Flags().StringVar(&processFollowUp, "follow-up", "", "follow-up date to record (YYYY-MM-DD)")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	if reportService == nil {
		return errNoReportService
	}

	var opts []driving.ProcessOption
	if processFollowUp != "" {
		date, err := domain.ParseDate(processFollowUp, time.Local)
		if err != nil {
			return err
		}
		opts = append(opts, driving.WithFollowUp(date))
	}

	uploads, err := readUploads(cmd, args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if len(uploads) == 1 {
		return processOne(ctx, cmd, uploads[0], opts)
	}
	return processMany(ctx, cmd, uploads, opts)
}

func readUploads(cmd *cobra.Command, args []string) ([]domain.Upload, error) {
	if processStdin {
		if len(args) > 0 {
			return nil, fmt.Errorf("%w: --stdin does not take file arguments", domain.ErrInvalidInput)
		}
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return []domain.Upload{{Filename: processName, Content: data}}, nil
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("%w: no files given (use --stdin to read text from standard input)", domain.ErrInvalidInput)
	}

	uploads := make([]domain.Upload, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		uploads = append(uploads, domain.Upload{Filename: filepath.Base(path), Content: data})
	}
	return uploads, nil
}

func processOne(ctx context.Context, cmd *cobra.Command, upload domain.Upload, opts []driving.ProcessOption) error {
	if interactive(cmd) {
		_, err := tui.RunProcess(ctx, reportService, upload, opts...)
		return err
	}

	if !processJSON {
		opts = append(opts, driving.WithProgress(progressPrinter(cmd.ErrOrStderr())))
	}

	report, err := reportService.Process(ctx, upload, opts...)
	if err != nil {
		return err
	}

	if processJSON {
		return writeJSON(cmd, report)
	}
	return assembler.Render(cmd.OutOrStdout(), report)
}

// batchEntry is the JSON shape of one batch result.
type batchEntry struct {
	Filename string         `json:"filename"`
	Report   *domain.Report `json:"report,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func processMany(ctx context.Context, cmd *cobra.Command, uploads []domain.Upload, opts []driving.ProcessOption) error {
	if !processJSON {
		opts = append(opts, driving.WithProgress(progressPrinter(cmd.ErrOrStderr())))
	}

	results := reportService.ProcessBatch(ctx, uploads, opts...)

	failed := 0
	entries := make([]batchEntry, len(results))
	for i, res := range results {
		entries[i] = batchEntry{Filename: res.Filename, Report: res.Report}
		if res.Err != nil {
			failed++
			entries[i].Error = res.Err.Error()
		}
	}

	if processJSON {
		if err := writeJSON(cmd, entries); err != nil {
			return err
		}
	} else {
		for i, res := range results {
			if i > 0 {
				cmd.Println()
			}
			if res.Err != nil {
				cmd.Printf("%s: FAILED: %v\n", res.Filename, res.Err)
				continue
			}
			if err := assembler.Render(cmd.OutOrStdout(), res.Report); err != nil {
				return err
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(results))
	}
	return nil
}

// interactive reports whether the live progress view should be used.
func interactive(cmd *cobra.Command) bool {
	if processJSON || processPlain {
		return false
	}
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// progressPrinter writes one line per finished stage.
func progressPrinter(w io.Writer) driven.ProgressSink {
	return driven.ProgressFunc(func(e domain.ProgressEvent) {
		if e.Status == domain.StatusStarted {
			return
		}
		line := fmt.Sprintf("[%s] %s %s", e.Filename, e.Stage, e.Status)
		if e.Message != "" {
			line += ": " + e.Message
		}
		fmt.Fprintln(w, line)
	})
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
