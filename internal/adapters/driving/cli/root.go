// Package cli provides the cobra command tree for medreport.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medreport/internal/core/ports/driving"
	"github.com/custodia-labs/medreport/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	verbose   bool
	configDir string
)

// Services are the driving ports the commands operate on.
type Services struct {
	Reports  driving.ReportService
	Context  driving.ContextService
	Settings driving.SettingsService

	// Close releases resources held by the services. May be nil.
	Close func() error
}

// Bootstrap builds the services for a configuration directory. An empty
// directory selects the default location.
type Bootstrap func(configDir string) (*Services, error)

var (
	reportService   driving.ReportService
	contextService  driving.ContextService
	settingsService driving.SettingsService

	bootstrap Bootstrap
	closer    func() error
)

var rootCmd = &cobra.Command{
	Use:   "medreport",
	Short: "Clinical document intelligence",
	Long: `medreport turns clinical documents (PDF, DOCX, text, scanned images) into
structured patient reports: demographics, detected conditions, suggested
medications, diet guidance, recovery estimate and follow-up date.

Processed documents are indexed locally so later reports can draw on a
patient's earlier history.

Suggestions are informational only. Always consult a doctor.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline diagnostics to stderr")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.medreport)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetBootstrap sets the function that builds services once flags are parsed.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices injects services directly, bypassing the bootstrap.
func SetServices(s *Services) {
	if s == nil {
		reportService, contextService, settingsService, closer = nil, nil, nil, nil
		return
	}
	reportService = s.Reports
	contextService = s.Context
	settingsService = s.Settings
	closer = s.Close
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	logger.SetOutput(cmd.ErrOrStderr())

	if bootstrap == nil || reportService != nil || skipBootstrap(cmd) {
		return nil
	}
	services, err := bootstrap(configDir)
	if err != nil {
		return fmt.Errorf("starting medreport: %w", err)
	}
	SetServices(services)
	return nil
}

// skipBootstrap reports whether cmd runs without services.
func skipBootstrap(cmd *cobra.Command) bool {
	return cmd == versionCmd
}

// Execute runs the root command and releases services afterwards.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if closer != nil {
		if cerr := closer(); cerr != nil {
			logger.Error("closing services: %v", cerr)
		}
	}
	return err
}

var errNoReportService = errors.New("report service not configured")
