package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	apppartner "github.com/erp/backoffice/internal/application/partner"
	"github.com/erp/backoffice/internal/bootstrap"
	"github.com/erp/backoffice/internal/domain/shared"
)

var suppliersCommand = &cobra.Command{
	Use:   "suppliers",
	Short: "Manage supplier integrations",
}

var suppliersListCommand = &cobra.Command{
	Use:   "list",
	Short: "List suppliers by code",
	RunE:  listSuppliersCmd,
}

var suppliersAddCommand = &cobra.Command{
	Use:   "add <code> <name>",
	Short: "Register a supplier integration",
	Args:  cobra.ExactArgs(2),
	RunE:  addSupplierCmd,
}

var (
	suppliersSearch string
	suppliersStatus string

	addType         string
	addEndpoint     string
	addAPIKey       string
	addAccessToken  string
	addWindowDays   int
	addWindowMonths int
	addScheduled    bool
)

func init() {
	suppliersListCommand.Flags().StringVar(&suppliersSearch, "search", "", "Code or name contains")
	suppliersListCommand.Flags().StringVar(&suppliersStatus, "status", "", "Only suppliers in this status (active, inactive)")

	suppliersAddCommand.Flags().StringVar(&addType, "type", "graphql", "Integration type (graphql, rest, crawling)")
	suppliersAddCommand.Flags().StringVar(&addEndpoint, "endpoint", "", "Catalog endpoint URL (required)")
	suppliersAddCommand.Flags().StringVar(&addAPIKey, "api-key", "", "API key sent with every request")
	suppliersAddCommand.Flags().StringVar(&addAccessToken, "access-token", "", "Bearer token sent with every request")
	suppliersAddCommand.Flags().IntVar(&addWindowDays, "window-days", 0, "Default look-back in days")
	suppliersAddCommand.Flags().IntVar(&addWindowMonths, "window-months", 0, "Default look-back in months")
	suppliersAddCommand.Flags().BoolVar(&addScheduled, "scheduled", false, "Include in scheduled collections")
	_ = suppliersAddCommand.MarkFlagRequired("endpoint")

	suppliersCommand.AddCommand(suppliersListCommand, suppliersAddCommand)
	rootCmd.AddCommand(suppliersCommand)
}

func listSuppliersCmd(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	return withCore(cmd.Context(), cfg, log, func(core *bootstrap.Core) error {
		page, err := core.SupplierAdmin.List(cmd.Context(), apppartner.SupplierListFilter{
			Search:   suppliersSearch,
			Status:   suppliersStatus,
			PageSize: 200,
		})
		if err != nil {
			return err
		}
		printSupplierTable(cmd.OutOrStdout(), page)
		return nil
	})
}

func addSupplierCmd(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	return withCore(cmd.Context(), cfg, log, func(core *bootstrap.Core) error {
		supplier, err := core.SupplierAdmin.Create(cmd.Context(), apppartner.CreateSupplierRequest{
			Code:            args[0],
			Name:            args[1],
			IntegrationType: addType,
			Endpoint:        addEndpoint,
			APIKey:          addAPIKey,
			AccessToken:     addAccessToken,
			WindowDays:      addWindowDays,
			WindowMonths:    addWindowMonths,
			ScheduleEnabled: addScheduled,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "registered %s (%s)\n", supplier.Code, supplier.ID)
		return nil
	})
}

// resolveSupplier accepts a supplier ID or code
func resolveSupplier(ctx context.Context, suppliers *apppartner.SupplierService, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	supplier, err := suppliers.GetByCode(ctx, ref)
	if err != nil {
		return uuid.Nil, fmt.Errorf("supplier %q: %w", ref, err)
	}
	return supplier.ID, nil
}

func printSupplierTable(w io.Writer, page shared.Paginated[apppartner.SupplierResponse]) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tID\tNAME\tSTATUS\tTYPE\tSCHEDULED\tENDPOINT")
	for _, s := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\t%s\n",
			s.Code, s.ID, s.Name, s.Status, s.IntegrationType, s.ScheduleEnabled, s.Endpoint)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "%d suppliers\n", page.Total)
}
