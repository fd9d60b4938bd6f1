package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driving"
	"github.com/custodia-labs/medreport/internal/logger"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Process documents as they arrive in a directory",
	Long: `Watches a directory and generates a report for every supported document
that is created or rewritten in it. Hidden files and unsupported formats are
ignored. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond,
		"quiet period after the last write before a file is processed")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if reportService == nil {
		return errNoReportService
	}

	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	w := &inboxWatcher{
		dir:      dir,
		debounce: watchDebounce,
		handle: func(ctx context.Context, path string) {
			processInboxFile(ctx, cmd, reportService, path)
		},
	}

	cmd.Printf("Watching %s for new documents (ctrl+c to stop)\n", dir)
	return w.run(ctx)
}

// inboxWatcher turns filesystem events into debounced per-file callbacks.
type inboxWatcher struct {
	dir      string
	debounce time.Duration
	handle   func(ctx context.Context, path string)
}

func (w *inboxWatcher) run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	debounce := newDebouncer(w.debounce)
	defer debounce.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			path, ok := handleFsEvent(event)
			if !ok {
				continue
			}
			logger.Debug("watch: %s %s", event.Op, path)
			debounce.touch(ctx, path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)

		case f := <-debounce.ready:
			if debounce.fire(f) {
				w.handle(ctx, f.path)
			}
		}
	}
}

// firing is a timer expiry for one generation of a path's timer.
type firing struct {
	path string
	gen  uint64
}

type pendingTimer struct {
	timer *time.Timer
	gen   uint64
}

// debouncer coalesces events per path. A timer that already fired cannot be
// stopped, so each firing carries its generation and only the newest counts.
// All methods except the timers' sends run on the owning goroutine.
type debouncer struct {
	delay   time.Duration
	pending map[string]pendingTimer
	gen     uint64
	ready   chan firing
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		pending: make(map[string]pendingTimer),
		ready:   make(chan firing),
	}
}

// touch restarts the quiet period for path.
func (d *debouncer) touch(ctx context.Context, path string) {
	if p, ok := d.pending[path]; ok {
		p.timer.Stop()
	}
	d.gen++
	f := firing{path: path, gen: d.gen}
	d.pending[path] = pendingTimer{
		gen: f.gen,
		timer: time.AfterFunc(d.delay, func() {
			select {
			case d.ready <- f:
			case <-ctx.Done():
			}
		}),
	}
}

// fire reports whether f is the current timer of its path and clears it.
func (d *debouncer) fire(f firing) bool {
	p, ok := d.pending[f.path]
	if !ok || p.gen != f.gen {
		return false
	}
	delete(d.pending, f.path)
	return true
}

func (d *debouncer) stop() {
	for _, p := range d.pending {
		p.timer.Stop()
	}
}

// handleFsEvent returns the path to process for an event, if any.
func handleFsEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	if isHidden(event.Name) {
		return "", false
	}
	if _, ok := domain.FormatFromFilename(event.Name); !ok {
		return "", false
	}
	info, err := os.Stat(event.Name)
	if err != nil || info.IsDir() {
		return "", false
	}
	return event.Name, true
}

// isHidden reports whether the file name marks a hidden or editor temp file.
func isHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$")
}

func processInboxFile(ctx context.Context, cmd *cobra.Command, reports driving.ReportService, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		cmd.Printf("%s: FAILED: %v\n", path, err)
		return
	}

	upload := domain.Upload{Filename: filepath.Base(path), Content: data}
	report, err := reports.Process(ctx, upload, driving.WithProgress(progressPrinter(cmd.ErrOrStderr())))
	if err != nil {
		logger.Error("%s: %v", path, err)
		cmd.Printf("%s: FAILED: %v\n", upload.Filename, err)
		return
	}

	conditions := "no specific condition"
	if labels := report.ConditionLabels(); len(labels) > 0 {
		conditions = strings.Join(labels, ", ")
	}
	cmd.Printf("%s: report %s (%s, retrieval %s)\n", upload.Filename, report.DocumentID, conditions, report.RetrievalStatus)
}
