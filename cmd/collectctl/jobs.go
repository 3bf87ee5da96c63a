package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/erp/backoffice/internal/bootstrap"
	"github.com/erp/backoffice/internal/domain/collection"
	"github.com/erp/backoffice/internal/domain/shared"
)

var jobsCommand = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect the collection job log",
}

var jobsListCommand = &cobra.Command{
	Use:   "list",
	Short: "List collection jobs, newest first",
	RunE:  listJobsCmd,
}

var jobsGetCommand = &cobra.Command{
	Use:   "get <job-id>",
	Short: "Show one collection job",
	Args:  cobra.ExactArgs(1),
	RunE:  getJobCmd,
}

var (
	jobsSupplier string
	jobsStatus   string
	jobsPage     int
	jobsPageSize int
)

func init() {
	jobsListCommand.Flags().StringVarP(&jobsSupplier, "supplier", "s", "", "Only jobs of this supplier ID")
	jobsListCommand.Flags().StringVar(&jobsStatus, "status", "", "Only jobs in this status (pending, running, completed, failed)")
	jobsListCommand.Flags().IntVar(&jobsPage, "page", 1, "Page number")
	jobsListCommand.Flags().IntVar(&jobsPageSize, "page-size", 20, "Jobs per page")

	jobsCommand.AddCommand(jobsListCommand, jobsGetCommand)
	rootCmd.AddCommand(jobsCommand)
}

// jobFilter builds the job log filter from command flags
func jobFilter(supplier, status string, page, pageSize int) (collection.JobFilter, error) {
	filter := collection.JobFilter{
		Filter: shared.Filter{Page: page, PageSize: pageSize},
		Status: collection.JobStatus(status),
	}
	if status != "" && !filter.Status.IsValid() {
		return filter, fmt.Errorf("unknown job status %q", status)
	}
	if supplier != "" {
		id, err := uuid.Parse(supplier)
		if err != nil {
			return filter, fmt.Errorf("invalid supplier id %q: %w", supplier, err)
		}
		filter.SupplierID = &id
	}
	return filter, nil
}

func listJobsCmd(cmd *cobra.Command, _ []string) error {
	filter, err := jobFilter(jobsSupplier, jobsStatus, jobsPage, jobsPageSize)
	if err != nil {
		return err
	}
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	return withCore(cmd.Context(), cfg, log, func(core *bootstrap.Core) error {
		result, err := core.NewOrchestrator(nil).ListJobs(cmd.Context(), filter)
		if err != nil {
			return err
		}
		printJobTable(cmd.OutOrStdout(), result)
		return nil
	})
}

func getJobCmd(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid job id %q: %w", args[0], err)
	}
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	return withCore(cmd.Context(), cfg, log, func(core *bootstrap.Core) error {
		job, err := core.NewOrchestrator(nil).GetJob(cmd.Context(), id)
		if err != nil {
			return err
		}
		printJob(cmd.OutOrStdout(), job)
		return nil
	})
}

func printJobTable(w io.Writer, page shared.Paginated[collection.CollectionJob]) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tSUPPLIER\tSTATUS\tTRIGGER\tSTARTED\tTOTAL\tNEW\tUPDATED\tFAILED")
	for _, job := range page.Items {
		started := "-"
		if job.StartedAt != nil {
			started = job.StartedAt.Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			job.ID, job.SupplierID, job.Status, job.Trigger, started,
			job.Counters.Total, job.Counters.New, job.Counters.Updated, job.Counters.Failed)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "page %d/%d, %d jobs\n", page.Page, page.TotalPages, page.Total)
}
