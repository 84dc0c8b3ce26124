package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deniro0912/gas-invoice/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "gas-invoice",
	Short: "gas-invoice - customer and invoice management on a shared spreadsheet",
	Long: `gas-invoice manages customers and invoices for a small billing
operation, persisting every record as rows in a shared Google
Spreadsheet.

Required environment variables:
  GOOGLE_SHEET_URL - URL of the backing spreadsheet
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("gas-invoice executed")

		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("dry-run", false, "Run against an empty in-memory store instead of the spreadsheet")
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
