package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/erp/backoffice/internal/bootstrap"
	"github.com/erp/backoffice/internal/infrastructure/scheduler"
)

var sweepCommand = &cobra.Command{
	Use:   "sweep",
	Short: "Fail running jobs that outlived the job timeout",
	Long: `Runs one pass of the stale job sweep the API server performs periodically.
Useful after a crash when no server is running to clean up.`,
	RunE: sweepCmd,
}

var sweepBatchSize int

func init() {
	sweepCommand.Flags().IntVar(&sweepBatchSize, "batch-size", 100, "Maximum jobs failed in this pass")
	rootCmd.AddCommand(sweepCommand)
}

func sweepCmd(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	return withCore(cmd.Context(), cfg, log, func(core *bootstrap.Core) error {
		orchestrator := core.NewOrchestrator(nil)
		sweeper := scheduler.NewStaleJobSweeper(scheduler.StaleJobSweeperConfig{
			JobTimeout: orchestrator.JobTimeout(),
			Grace:      cfg.Collection.StaleGrace,
			BatchSize:  sweepBatchSize,
		}, orchestrator, log)

		failed, err := sweeper.Sweep(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "failed %d stale job(s) started before %s\n", failed, sweeper.Cutoff().Format("2006-01-02 15:04:05"))
		return nil
	})
}
