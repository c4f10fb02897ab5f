// labelfeed retrieves lab-test compliance data for a cannabis package from
// the Metrc tracking service and writes the normalized export file the
// BarTender labeling workflow consumes.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"labelfeed/internal/config"
	"labelfeed/internal/export"
	"labelfeed/internal/license"
	"labelfeed/internal/metrc"
	"labelfeed/internal/search"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// search flags
	licenseFlag    string
	tagFlag        string
	unitWeightFlag string
	labelCount     int
	outPath        string

	// Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "labelfeed",
	Short: "labelfeed - Metrc lab-test retrieval for label printing",
	Long: `labelfeed looks up a package on the Metrc tracking service by its
partial tag, collects every lab-test result page, normalizes the potency and
terpene measurements, and writes a JSON export for the labeling system.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Look up a package's lab tests and write the label export",
	Long: `Resolves the partial tag against the selected license's tag prefix,
fetches the package and all of its lab-test result pages, and writes the
normalized export file. Credentials come from METRC_VENDOR_KEY and
METRC_USER_KEY (or the config file); both are required.`,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if outPath != "" {
		cfg.ExportPath = outPath
	}

	clientCfg := metrc.DefaultConfig(cfg.VendorKey, cfg.UserKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.Timeout = cfg.RequestTimeout()
	clientCfg.MaxRetries = cfg.MaxRetries
	clientCfg.BackoffBase, clientCfg.BackoffMax = cfg.Backoff()
	clientCfg.PageSize = cfg.PageSize

	searcher := search.New(metrc.New(clientCfg, logger), logger)
	rec, err := searcher.Search(context.Background(), search.Request{
		License:    license.Selector(licenseFlag),
		PartialTag: tagFlag,
		UnitWeight: unitWeightFlag,
		LabelCount: labelCount,
	})
	if err != nil {
		return errors.New(userMessage(err))
	}

	if err := export.Write(cfg.ExportPath, rec); err != nil {
		return err
	}
	fmt.Printf("Export written to %s (%s, %d terpenes)\n", cfg.ExportPath, rec.ProductName, len(rec.Terpenes))
	return nil
}

// userMessage maps the error taxonomy onto actionable messages. The
// distinction between failure classes is preserved all the way here.
func userMessage(err error) string {
	var badReq *metrc.BadRequestError
	var httpErr *metrc.HTTPError
	var netErr *metrc.NetworkError
	switch {
	case errors.Is(err, license.ErrInvalidTag):
		return fmt.Sprintf("invalid tag: %v", err)
	case errors.Is(err, license.ErrUnknownLicense):
		return fmt.Sprintf("unknown license (use one of %v)", license.All())
	case errors.Is(err, search.ErrInvalidUnitWeight):
		return err.Error()
	case errors.Is(err, metrc.ErrUnauthorized):
		return "Metrc rejected the credentials; check METRC_VENDOR_KEY and METRC_USER_KEY"
	case errors.As(err, &badReq):
		return fmt.Sprintf("Metrc rejected the request: %s", badReq.Body)
	case errors.As(err, &netErr):
		return fmt.Sprintf("could not reach Metrc after %d attempts: %v", netErr.Attempts, netErr.Unwrap())
	case errors.Is(err, metrc.ErrMalformedResponse), errors.Is(err, metrc.ErrUnexpectedSchema):
		return fmt.Sprintf("Metrc returned an unusable response: %v", err)
	case errors.Is(err, metrc.ErrPackageIDNotFound):
		return "package found but it carries no id; verify the tag"
	case errors.As(err, &httpErr):
		return fmt.Sprintf("Metrc returned HTTP %d", httpErr.Status)
	default:
		return err.Error()
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default labelfeed.yaml)")

	searchCmd.Flags().StringVarP(&licenseFlag, "license", "l", string(license.Manufacturing), "license selector (MAN or CUL)")
	searchCmd.Flags().StringVarP(&tagFlag, "tag", "t", "", "partial package tag (digits only)")
	searchCmd.Flags().StringVarP(&unitWeightFlag, "unit-weight", "w", "", "unit weight to print on the label")
	searchCmd.Flags().IntVarP(&labelCount, "labels", "n", 1, "number of labels to request")
	searchCmd.Flags().StringVarP(&outPath, "out", "o", "", "export file path (overrides config)")
	_ = searchCmd.MarkFlagRequired("tag")

	rootCmd.AddCommand(searchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
