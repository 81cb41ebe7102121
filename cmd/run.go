package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/claims-cli/internal/config"
	"github.com/sells-group/claims-cli/internal/loader"
	"github.com/sells-group/claims-cli/internal/model"
	"github.com/sells-group/claims-cli/internal/monitoring"
	"github.com/sells-group/claims-cli/internal/output"
	"github.com/sells-group/claims-cli/internal/pipeline"
	"github.com/sells-group/claims-cli/internal/store"
)

// runParams are the per-invocation inputs of the run command.
type runParams struct {
	Inputs      pipeline.Inputs
	OutputDir   string
	AliasesFile string
	Parquet     bool
	SQLite      bool
	MetricsFile string
}

var (
	runPharmacyDirs []string
	runClaimsDirs   []string
	runRevertsDirs  []string
	runOutputDir    string
	runAliases      string
	runParquet      bool
	runSQLite       bool
	runMetricsFile  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconcile claims and write the goal reports",
	Long: `Loads every .json, .csv, .xlsx, and .zip file under the given directories,
drops reverted claims and claims for unknown pharmacies, and writes:

  goal_2_metrics.json             per (npi, ndc) fills, reverts, and prices
  goal_3_recommendations.json     cheapest chains per drug
  goal_4_common_quantities.json   most prescribed quantities per drug

Examples:
  claims-cli run --pharmacy-dirs data/pharmacies --claims-dirs data/claims \
    --reverts-dirs data/reverts --output-dir out

  # Several directories per collection
  claims-cli run --claims-dirs jan,feb --claims-dirs mar ...`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		params := runParams{
			Inputs: pipeline.Inputs{
				PharmacyDirs: runPharmacyDirs,
				ClaimsDirs:   runClaimsDirs,
				RevertsDirs:  runRevertsDirs,
			},
			OutputDir:   runOutputDir,
			AliasesFile: cfg.Loader.AliasesFile,
			Parquet:     cfg.Output.Parquet,
			SQLite:      cfg.Output.SQLite,
			MetricsFile: cfg.Metrics.Textfile,
		}
		flags := cmd.Flags()
		if flags.Changed("aliases") {
			params.AliasesFile = runAliases
		}
		if flags.Changed("parquet") {
			params.Parquet = runParquet
		}
		if flags.Changed("sqlite") {
			params.SQLite = runSQLite
		}
		if flags.Changed("metrics-file") {
			params.MetricsFile = runMetricsFile
		}

		return executeRun(cmd.Context(), cfg, params)
	},
}

func init() {
	runCmd.Flags().StringSliceVar(&runPharmacyDirs, "pharmacy-dirs", nil, "directories holding pharmacy data (required)")
	runCmd.Flags().StringSliceVar(&runClaimsDirs, "claims-dirs", nil, "directories holding claims data (required)")
	runCmd.Flags().StringSliceVar(&runRevertsDirs, "reverts-dirs", nil, "directories holding revert data (required)")
	runCmd.Flags().StringVar(&runOutputDir, "output-dir", "", "directory to save output JSON files (required)")
	runCmd.Flags().StringVar(&runAliases, "aliases", "", "YAML column alias table (overrides loader.aliases_file)")
	runCmd.Flags().BoolVar(&runParquet, "parquet", false, "also write goal_2_metrics.parquet")
	runCmd.Flags().BoolVar(&runSQLite, "sqlite", false, "also write results.db")
	runCmd.Flags().StringVar(&runMetricsFile, "metrics-file", "", "write run metrics in Prometheus textfile format")
	for _, name := range []string{"pharmacy-dirs", "claims-dirs", "reverts-dirs", "output-dir"} {
		_ = runCmd.MarkFlagRequired(name)
	}
	rootCmd.AddCommand(runCmd)
}

// executeRun runs the pipeline and writes every enabled output. A run with
// no claims for known pharmacies logs a warning and writes nothing.
func executeRun(ctx context.Context, c *config.Config, params runParams) error {
	loaderOpts, err := loaderOptions(c, params.AliasesFile)
	if err != nil {
		return err
	}

	collector := monitoring.NewCollector()
	defer writeMetrics(collector, params.MetricsFile)

	p := pipeline.New(pipeline.Options{
		Loader:        loaderOpts,
		TopChains:     c.Analytics.TopChains,
		TopQuantities: c.Analytics.TopQuantities,
	}, collector)

	result, err := p.Run(ctx, params.Inputs)
	if eris.Is(err, pipeline.ErrNoWork) {
		zap.L().Warn("run: no claims correspond to the pharmacies provided, no metrics to calculate")
		return nil
	}
	if err != nil {
		return eris.Wrap(err, "run")
	}

	report := model.Report{
		FillMetrics:     result.FillMetrics,
		Recommendations: result.Recommendations,
		Quantities:      result.Quantities,
	}
	if _, err := output.WriteJSON(params.OutputDir, report); err != nil {
		return eris.Wrap(err, "run: write reports")
	}

	if params.Parquet {
		path, err := output.WriteFillMetricsParquet(params.OutputDir, result.FillMetrics)
		if err != nil {
			return eris.Wrap(err, "run: write parquet")
		}
		zap.L().Info("run: parquet saved", zap.String("path", path))
	}

	if params.SQLite {
		if err := saveSQLite(ctx, params.OutputDir, result, report); err != nil {
			return err
		}
	}

	zap.L().Info("run: pipeline finished successfully",
		zap.String("run_id", result.RunID),
		zap.Int("fill_metrics", len(result.FillMetrics)),
		zap.Int("recommendations", len(result.Recommendations)),
		zap.Int("quantities", len(result.Quantities)),
	)
	return nil
}

func loaderOptions(c *config.Config, aliasesFile string) (loader.Options, error) {
	opts := loader.Options{
		ExtractZIP: c.Loader.ExtractZIP,
		XLSX:       c.Loader.XLSX,
	}
	if aliasesFile != "" {
		aliases, err := loader.LoadAliases(aliasesFile)
		if err != nil {
			return opts, eris.Wrap(err, "run: load aliases")
		}
		opts.Aliases = aliases
	}
	return opts, nil
}

func saveSQLite(ctx context.Context, dir string, result *pipeline.Result, report model.Report) error {
	path := filepath.Join(dir, store.ResultsFile)
	st, err := store.NewSQLite(path)
	if err != nil {
		return eris.Wrap(err, "run: open results db")
	}
	defer st.Close() //nolint:errcheck

	if err := st.Migrate(ctx); err != nil {
		return eris.Wrap(err, "run: migrate results db")
	}
	if err := st.SaveReport(ctx, result.RunID, result.Stats, report); err != nil {
		return eris.Wrap(err, "run: save results db")
	}
	zap.L().Info("run: results db saved", zap.String("path", path))
	return nil
}

func writeMetrics(collector *monitoring.Collector, path string) {
	if path == "" {
		return
	}
	collector.MarkFinished(time.Now())
	if err := collector.WriteTextfile(path); err != nil {
		zap.L().Error("run: write metrics textfile", zap.Error(err))
	}
}
