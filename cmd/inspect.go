package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/claims-cli/internal/loader"
	"github.com/sells-group/claims-cli/internal/model"
)

var (
	inspectDirs    []string
	inspectAliases string
)

// inspectReport summarizes what the loader found.
type inspectReport struct {
	Files   int                  `json:"files"`
	Records int                  `json:"records"`
	Columns []string             `json:"columns"`
	Skipped []loader.SkippedFile `json:"skipped"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Load directories and print what was found",
	Long: `Runs the loader only and prints the file count, record count, column names,
and skipped files as JSON. Useful for checking a new data drop before a run.

Examples:
  claims-cli inspect --dirs data/claims`,
	Annotations:  map[string]string{logOutputAnnotation: "stderr"},
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		aliases := cfg.Loader.AliasesFile
		if cmd.Flags().Changed("aliases") {
			aliases = inspectAliases
		}
		opts, err := loaderOptions(cfg, aliases)
		if err != nil {
			return err
		}

		res, err := loader.New(opts).Load(cmd.Context(), inspectDirs)
		if err != nil {
			return eris.Wrap(err, "inspect: load")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(inspectReport{
			Files:   res.Files,
			Records: len(res.Records),
			Columns: model.Columns(res.Records),
			Skipped: res.Skipped,
		})
	},
}

func init() {
	inspectCmd.Flags().StringSliceVar(&inspectDirs, "dirs", nil, "directories to load (required)")
	inspectCmd.Flags().StringVar(&inspectAliases, "aliases", "", "YAML column alias table")
	_ = inspectCmd.MarkFlagRequired("dirs")
	rootCmd.AddCommand(inspectCmd)
}
