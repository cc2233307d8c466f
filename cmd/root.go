package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"posterm/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "posterm",
	Short: "posterm - a point-of-sale terminal for the WebPOS backend",
	Long: `posterm is a point-of-sale terminal client. It talks to the WebPOS
REST backend for everything: sales, items, customers, payments and
printing all live server-side, and posterm keeps the operator's view
in sync with them.

Run "posterm terminal" to start an interactive register session, or use
the subcommands for one-off tasks like searching sales or pairing an
EFTPOS terminal.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("posterm executed")

		fmt.Println("posterm - point-of-sale terminal")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
