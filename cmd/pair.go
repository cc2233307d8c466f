package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"posterm/internal/api"
	"posterm/internal/config"
	"posterm/internal/credstore"
	"posterm/internal/notify"
	"posterm/internal/payment"
)

var (
	pairMerchantID string
	pairTerminalID string
)

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Pair this register with an EFTPOS terminal",
	Long: `Exchange a merchant id and terminal id for an integration key through
the backend's payment provider, and store all three locally for future
sessions. Pairing only needs to happen once per register.`,
	Example: `  posterm pair --merchant 123456 --terminal T0042`,
	Args:    cobra.NoArgs,
	RunE:    runPair,
}

var terminalInfoCmd = &cobra.Command{
	Use:   "terminal-info",
	Short: "Show the paired EFTPOS terminal's status",
	Long: `Query the payment provider for the paired terminal's current status
using the stored pairing credentials. Fails when the register has not
been paired yet.`,
	Args: cobra.NoArgs,
	RunE: runTerminalInfo,
}

func init() {
	pairCmd.Flags().StringVar(&pairMerchantID, "merchant", "", "Merchant id issued by the payment provider")
	pairCmd.Flags().StringVar(&pairTerminalID, "terminal", "", "Terminal id printed on the EFTPOS unit")
	pairCmd.MarkFlagRequired("merchant")
	pairCmd.MarkFlagRequired("terminal")
	rootCmd.AddCommand(pairCmd)
	rootCmd.AddCommand(terminalInfoCmd)
}

func newPaymentService(cfg *config.Config) *payment.Service {
	client := api.New(api.Config{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout})
	creds := credstore.New(cfg.Terminal.CredentialsPath)
	// Pairing runs outside a register session; no cart or store to sync.
	return payment.New(client, nil, nil, creds, notify.NewHub(10), payment.Config{})
}

func runPair(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	svc := newPaymentService(cfg)

	creds, err := svc.Pair(context.Background(), pairMerchantID, pairTerminalID)
	if err != nil {
		return err
	}
	fmt.Printf("Paired terminal %s for merchant %s\n", creds.TerminalID, creds.MerchantID)
	fmt.Printf("Credentials stored in %s\n", cfg.Terminal.CredentialsPath)
	return nil
}

func runTerminalInfo(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	svc := newPaymentService(cfg)

	info, err := svc.Info(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Terminal %s (merchant %s): %s\n", info.TerminalID, info.MerchantID, info.Status)
	if info.Firmware != "" {
		fmt.Printf("Firmware: %s\n", info.Firmware)
	}
	return nil
}
