package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"posterm/internal/api"
	"posterm/internal/config"
	"posterm/internal/customer"
	"posterm/internal/ui"
)

var (
	customerName    string
	customerPhone   string
	customerEmail   string
	customerAddress string
	customerCompany string
)

var customersCmd = &cobra.Command{
	Use:   "customers",
	Short: "Back-office customer management",
}

var customersSearchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Search customers by name",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := ""
		if len(args) > 0 {
			query = args[0]
		}
		results, err := newCustomerService().Search(context.Background(), query)
		if err != nil {
			return err
		}
		ui.RenderCustomers(os.Stdout, results)
		return nil
	},
}

var customersCreateCmd = &cobra.Command{
	Use:     "create",
	Short:   "Add a customer",
	Example: `  posterm customers create --name "Pat Smith" --phone 555-0100 --company "Smith & Co"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		created, err := newCustomerService().Create(context.Background(), customerInput())
		if err != nil {
			return err
		}
		fmt.Printf("Created customer %d: %s\n", created.ID, created.Name)
		return nil
	},
}

var customersUpdateCmd = &cobra.Command{
	Use:   "update <customerID>",
	Short: "Save changes to a customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("customer id %q is not a number", args[0])
		}
		updated, err := newCustomerService().Update(context.Background(), id, customerInput())
		if err != nil {
			return err
		}
		fmt.Printf("Updated customer %d: %s\n", updated.ID, updated.Name)
		return nil
	},
}

var customersDeleteCmd = &cobra.Command{
	Use:   "delete <customerID>",
	Short: "Remove a customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("customer id %q is not a number", args[0])
		}
		return newCustomerService().Delete(context.Background(), id)
	},
}

func init() {
	for _, c := range []*cobra.Command{customersCreateCmd, customersUpdateCmd} {
		c.Flags().StringVar(&customerName, "name", "", "Customer name")
		c.Flags().StringVar(&customerPhone, "phone", "", "Phone number")
		c.Flags().StringVar(&customerEmail, "email", "", "Email address")
		c.Flags().StringVar(&customerAddress, "address", "", "Postal address")
		c.Flags().StringVar(&customerCompany, "company", "", "Company name")
		c.MarkFlagRequired("name")
	}

	customersCmd.AddCommand(customersSearchCmd, customersCreateCmd, customersUpdateCmd, customersDeleteCmd)
	rootCmd.AddCommand(customersCmd)
}

func newCustomerService() *customer.Service {
	cfg := config.Load()
	return customer.New(api.New(api.Config{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout}))
}

func customerInput() customer.Input {
	return customer.Input{
		Name:        customerName,
		Phone:       customerPhone,
		Email:       customerEmail,
		Address:     customerAddress,
		CompanyName: customerCompany,
	}
}
