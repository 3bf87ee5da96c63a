package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appcollection "github.com/erp/backoffice/internal/application/collection"
	"github.com/erp/backoffice/internal/bootstrap"
	"github.com/erp/backoffice/internal/domain/collection"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Collect one supplier's catalog and wait for the result",
	Long: `Runs a collection on this process and prints the finished job.

Without window flags the supplier's window defaults apply. --start/--end take
RFC 3339 timestamps or plain dates (2006-01-02). The command exits non-zero
when the job ends Failed.`,
	RunE: runCollectionCmd,
}

var (
	runSupplier   string
	runDaysBack   int
	runMonthsBack int
	runStart      string
	runEnd        string
	runArchive    bool
)

func init() {
	runCommand.Flags().StringVarP(&runSupplier, "supplier", "s", "", "Supplier ID or code (required)")
	runCommand.Flags().IntVar(&runDaysBack, "days-back", 0, "Collect the last N days")
	runCommand.Flags().IntVar(&runMonthsBack, "months-back", 0, "Collect the last N months")
	runCommand.Flags().StringVar(&runStart, "start", "", "Window start")
	runCommand.Flags().StringVar(&runEnd, "end", "", "Window end")
	runCommand.Flags().BoolVar(&runArchive, "archive", false, "Archive raw page payloads even when archive.enabled is off")
	_ = runCommand.MarkFlagRequired("supplier")

	rootCmd.AddCommand(runCommand)
}

func runCollectionCmd(cmd *cobra.Command, _ []string) error {
	window, err := windowSpec(runStart, runEnd, runDaysBack, runMonthsBack)
	if err != nil {
		return err
	}

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if runArchive {
		cfg.Archive.Enabled = true
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return withCore(ctx, cfg, log, func(core *bootstrap.Core) error {
		supplierID, err := resolveSupplier(ctx, core.SupplierAdmin, runSupplier)
		if err != nil {
			return err
		}
		orchestrator := core.NewOrchestrator(appcollection.InlineDispatcher{Ctx: ctx})
		job, err := orchestrator.RunCollection(ctx, appcollection.StartRequest{
			SupplierID: supplierID,
			Window:     window,
			Trigger:    collection.TriggerCLI,
		})
		if err != nil {
			return err
		}
		printJob(cmd.OutOrStdout(), job)
		if count, err := core.StockQueries.CountProducts(ctx, supplierID); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "catalog:   %d products\n", count)
		} else {
			log.Warn("Failed to count supplier catalog", zap.Error(err))
		}
		if job.Status == collection.JobStatusFailed {
			return fmt.Errorf("collection job %s failed", job.ID)
		}
		return nil
	})
}

// windowSpec builds the collection window from command flags. Explicit
// bounds win over look-back counts.
func windowSpec(start, end string, daysBack, monthsBack int) (collection.WindowSpec, error) {
	var spec collection.WindowSpec
	if start != "" {
		t, err := parseTime(start)
		if err != nil {
			return spec, fmt.Errorf("invalid --start: %w", err)
		}
		spec.Start = &t
	}
	if end != "" {
		t, err := parseTime(end)
		if err != nil {
			return spec, fmt.Errorf("invalid --end: %w", err)
		}
		spec.End = &t
	}
	if spec.Start != nil || spec.End != nil {
		return spec, nil
	}
	if daysBack < 0 || monthsBack < 0 {
		return spec, fmt.Errorf("look-back must not be negative")
	}
	spec.DaysBack = daysBack
	spec.MonthsBack = monthsBack
	return spec, nil
}

func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, value)
}

func printJob(w io.Writer, job *collection.CollectionJob) {
	fmt.Fprintf(w, "job:       %s\n", job.ID)
	fmt.Fprintf(w, "supplier:  %s\n", job.SupplierID)
	fmt.Fprintf(w, "status:    %s\n", job.Status)
	fmt.Fprintf(w, "window:    %s .. %s\n", job.Window.Start.Format(time.RFC3339), job.Window.End.Format(time.RFC3339))
	fmt.Fprintf(w, "products:  total=%d new=%d updated=%d failed=%d\n",
		job.Counters.Total, job.Counters.New, job.Counters.Updated, job.Counters.Failed)
	if job.StartedAt != nil && job.CompletedAt != nil {
		fmt.Fprintf(w, "duration:  %s\n", job.CompletedAt.Sub(*job.StartedAt).Round(time.Millisecond))
	}
	if job.ErrorSummary != "" {
		fmt.Fprintf(w, "errors:\n%s\n", job.ErrorSummary)
	}
}
