package cmd

import (
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/doctext/internal/batch"
	"github.com/MeKo-Tech/doctext/internal/config"
	"github.com/spf13/cobra"
)

// batchCmd represents the batch command for parallel document processing.
var batchCmd = &cobra.Command{
	Use:   "batch <paths...>",
	Short: "Process many documents in parallel",
	Long: `Discover supported documents under the given files and directories and
process them with a bounded pool of workers. Results keep discovery order.

Without --continue-on-error the first failing document stops the batch.

Examples:
  doctext batch inbox/
  doctext batch scans/ --no-recursive --include '*.png' --workers 8
  doctext batch a.pdf b.docx --format json --output results.json
  doctext batch archive/ --continue-on-error --progress --stats`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runBatchCommand,
}

// configToBatchConfig maps centralized configuration to batch.Config with
// CLI flag overrides.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) batch.Config {
	flags := cmd.Flags()
	bc := batch.DefaultConfig()

	bc.Workers = cfg.Batch.Workers
	if flags.Changed("workers") {
		bc.Workers, _ = flags.GetInt("workers")
	}
	bc.Recursive = cfg.Batch.Recursive
	if flags.Changed("no-recursive") {
		noRecursive, _ := flags.GetBool("no-recursive")
		bc.Recursive = !noRecursive
	}
	bc.IncludePatterns = cfg.Batch.Include
	if flags.Changed("include") {
		bc.IncludePatterns, _ = flags.GetStringSlice("include")
	}
	bc.ExcludePatterns = cfg.Batch.Exclude
	if flags.Changed("exclude") {
		bc.ExcludePatterns, _ = flags.GetStringSlice("exclude")
	}
	bc.ContinueOnError = cfg.Batch.ContinueOnError
	if flags.Changed("continue-on-error") {
		bc.ContinueOnError, _ = flags.GetBool("continue-on-error")
	}

	bc.Format = cfg.Output.Format
	bc.OutputFile = cfg.Output.File
	bc.ShowProgress, _ = flags.GetBool("progress")
	bc.ShowStats, _ = flags.GetBool("stats")
	bc.Quiet, _ = flags.GetBool("quiet")
	return bc
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	bc := configToBatchConfig(cfg, cmd)
	if bc.Workers < 1 {
		return fmt.Errorf("invalid worker count: %d (must be at least 1)", bc.Workers)
	}

	ctx := commandContext(cmd)
	p, err := pipelineFactory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			slog.Warn("Error closing pipeline", "error", err)
		}
	}()

	res, err := batch.Run(ctx, p, args, bc, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if err := res.SaveResults(cmd.OutOrStdout(), bc.Format, bc.OutputFile, bc.Quiet); err != nil {
		return err
	}
	if bc.ShowStats && !bc.Quiet {
		res.PrintStats(cmd.ErrOrStderr())
		slog.Debug("Pipeline profile", "profile", p.Profiler().Snapshot())
	}
	if failed := res.Failed(); failed > 0 {
		slog.Warn("Some documents failed", "failed", failed, "total", len(res.Files))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().IntP("workers", "w", 4, "number of documents processed concurrently")
	batchCmd.Flags().Bool("no-recursive", false, "do not descend into subdirectories")
	batchCmd.Flags().StringSlice("include", nil, "only process files matching these glob patterns")
	batchCmd.Flags().StringSlice("exclude", nil, "skip files matching these glob patterns")
	batchCmd.Flags().Bool("continue-on-error", false, "record per-file failures instead of stopping")
	batchCmd.Flags().Bool("progress", false, "show progress on stderr")
	batchCmd.Flags().Bool("stats", false, "print processing statistics on stderr")
	batchCmd.Flags().BoolP("quiet", "q", false, "suppress progress and status messages")
}
