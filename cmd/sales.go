package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"posterm/internal/api"
	"posterm/internal/config"
	"posterm/internal/domain"
	"posterm/internal/sales"
	"posterm/internal/ui"
)

var (
	salesSaleID        int64
	salesCustomerQuery string
	salesStatus        string
)

var salesCmd = &cobra.Command{
	Use:   "sales",
	Short: "Search past sales",
	Long: `Search sales by id, customer, or status without starting a register
session. Useful at the back office or from scripts.`,
	Example: `  # Everything still open
  posterm sales --status Open

  # One specific sale
  posterm sales --id 42

  # A customer's history
  posterm sales --customer "smith"`,
	Args: cobra.NoArgs,
	RunE: runSales,
}

func init() {
	salesCmd.Flags().Int64Var(&salesSaleID, "id", 0, "Sale id to look up")
	salesCmd.Flags().StringVar(&salesCustomerQuery, "customer", "", "Customer name or phone fragment")
	salesCmd.Flags().StringVar(&salesStatus, "status", "", "Sale status (Open, Quote, Invoice, Paid, Void)")
	rootCmd.AddCommand(salesCmd)
}

func runSales(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	client := api.New(api.Config{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout})
	svc := sales.New(client)

	filter := sales.Filter{
		SaleID:        salesSaleID,
		CustomerQuery: salesCustomerQuery,
	}
	if salesStatus != "" {
		status, ok := domain.ParseStatus(salesStatus)
		if !ok {
			return fmt.Errorf("unknown status %q", salesStatus)
		}
		filter.Status = status
	}

	results, err := svc.Search(context.Background(), filter)
	if err != nil {
		return err
	}
	ui.RenderSales(os.Stdout, results)
	return nil
}
