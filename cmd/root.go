package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/claims-cli/internal/config"
)

var cfg *config.Config

// logOutputAnnotation overrides log.output for a single command.
const logOutputAnnotation = "log-output"

var rootCmd = &cobra.Command{
	Use:   "claims-cli",
	Short: "Pharmacy claims reconciliation and analytics",
	Long:  "Loads pharmacy, claim, and revert files from directory trees, reconciles them, and writes fill metrics, chain recommendations, and common quantities as JSON.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
		cfg = c

		// Commands that print results on stdout keep diagnostics off it.
		if out, ok := cmd.Annotations[logOutputAnnotation]; ok {
			cfg.Log.Output = out
		}

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	// Accept --claims_dirs as well as --claims-dirs.
	rootCmd.SetGlobalNormalizationFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
