package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/deniro0912/gas-invoice/internal/logger"
	"github.com/deniro0912/gas-invoice/pkg/models"
)

var invoiceCmd = &cobra.Command{
	Use:   "invoice",
	Short: "Manage invoices",
}

var invoiceCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a draft invoice for a customer",
	Example: `  # 100,000 yen of ad placement for customer C00001
  gas-invoice invoice create --customer C00001 \
    --advertiser "株式会社サンプル" --subject "2025年3月号 広告掲載" \
    --unit-price 100000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.WithComponent("invoice-cmd")

		timeoutSecs, _ := cmd.Flags().GetInt("timeout")
		ctx, cancel := commandContext(timeoutSecs, log)
		defer cancel()

		a, err := buildApp(ctx, cmd, log)
		if err != nil {
			return renderError(err, log)
		}

		in := models.NewInvoiceInput{}
		in.CustomerID, _ = cmd.Flags().GetString("customer")
		in.Advertiser, _ = cmd.Flags().GetString("advertiser")
		in.Subject, _ = cmd.Flags().GetString("subject")
		in.UnitPrice, _ = cmd.Flags().GetInt64("unit-price")
		in.Notes, _ = cmd.Flags().GetString("notes")

		if dateStr, _ := cmd.Flags().GetString("issue-date"); dateStr != "" {
			date, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
			if err != nil {
				return renderError(err, log)
			}
			in.IssueDate = date
		}

		invoice, err := a.invoices.Create(ctx, in)
		if err != nil {
			return renderError(err, log)
		}
		return printJSON(invoice)
	},
}

var invoiceGetCmd = &cobra.Command{
	Use:   "get [invoice-number]",
	Short: "Show one invoice with its line items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.WithComponent("invoice-cmd")

		timeoutSecs, _ := cmd.Flags().GetInt("timeout")
		ctx, cancel := commandContext(timeoutSecs, log)
		defer cancel()

		a, err := buildApp(ctx, cmd, log)
		if err != nil {
			return renderError(err, log)
		}

		invoice, err := a.invoices.Get(ctx, args[0])
		if err != nil {
			return renderError(err, log)
		}
		return printJSON(invoice)
	},
}

var invoiceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invoices, optionally filtered",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.WithComponent("invoice-cmd")

		timeoutSecs, _ := cmd.Flags().GetInt("timeout")
		ctx, cancel := commandContext(timeoutSecs, log)
		defer cancel()

		a, err := buildApp(ctx, cmd, log)
		if err != nil {
			return renderError(err, log)
		}

		filter := models.InvoiceFilter{}
		filter.CustomerID, _ = cmd.Flags().GetString("customer")
		filter.Advertiser, _ = cmd.Flags().GetString("advertiser")
		if status, _ := cmd.Flags().GetString("status"); status != "" {
			filter.Status = models.InvoiceStatus(status)
		}
		if from, _ := cmd.Flags().GetString("from"); from != "" {
			date, err := time.ParseInLocation("2006-01-02", from, time.Local)
			if err != nil {
				return renderError(err, log)
			}
			filter.DateFrom = date
		}
		if to, _ := cmd.Flags().GetString("to"); to != "" {
			date, err := time.ParseInLocation("2006-01-02", to, time.Local)
			if err != nil {
				return renderError(err, log)
			}
			filter.DateTo = date
		}

		invoices, err := a.invoices.Search(ctx, filter)
		if err != nil {
			return renderError(err, log)
		}
		return printJSON(invoices)
	},
}

var invoiceIssueCmd = &cobra.Command{
	Use:   "issue [invoice-number]",
	Short: "Issue a draft invoice",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.WithComponent("invoice-cmd")

		timeoutSecs, _ := cmd.Flags().GetInt("timeout")
		ctx, cancel := commandContext(timeoutSecs, log)
		defer cancel()

		a, err := buildApp(ctx, cmd, log)
		if err != nil {
			return renderError(err, log)
		}

		invoice, err := a.invoices.Issue(ctx, args[0])
		if err != nil {
			return renderError(err, log)
		}
		return printJSON(invoice)
	},
}

var invoiceCancelCmd = &cobra.Command{
	Use:   "cancel [invoice-number]",
	Short: "Cancel an invoice",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.WithComponent("invoice-cmd")

		timeoutSecs, _ := cmd.Flags().GetInt("timeout")
		ctx, cancel := commandContext(timeoutSecs, log)
		defer cancel()

		a, err := buildApp(ctx, cmd, log)
		if err != nil {
			return renderError(err, log)
		}

		invoice, err := a.invoices.Cancel(ctx, args[0])
		if err != nil {
			return renderError(err, log)
		}
		return printJSON(invoice)
	},
}

var invoiceDeleteCmd = &cobra.Command{
	Use:   "delete [invoice-number]",
	Short: "Delete a non-issued invoice and its line items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.WithComponent("invoice-cmd")

		timeoutSecs, _ := cmd.Flags().GetInt("timeout")
		ctx, cancel := commandContext(timeoutSecs, log)
		defer cancel()

		a, err := buildApp(ctx, cmd, log)
		if err != nil {
			return renderError(err, log)
		}

		if err := a.invoices.Delete(ctx, args[0]); err != nil {
			return renderError(err, log)
		}
		return printJSON(map[string]string{"deleted": args[0]})
	},
}

var invoiceReportCmd = &cobra.Command{
	Use:   "report [yyyymm]",
	Short: "Show the monthly billing report",
	Example: `  gas-invoice invoice report 202503`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.WithComponent("invoice-cmd")

		timeoutSecs, _ := cmd.Flags().GetInt("timeout")
		ctx, cancel := commandContext(timeoutSecs, log)
		defer cancel()

		a, err := buildApp(ctx, cmd, log)
		if err != nil {
			return renderError(err, log)
		}

		report, err := a.invoices.MonthlyReport(ctx, args[0])
		if err != nil {
			return renderError(err, log)
		}
		return printJSON(report)
	},
}

func init() {
	rootCmd.AddCommand(invoiceCmd)
	invoiceCmd.AddCommand(invoiceCreateCmd, invoiceGetCmd, invoiceListCmd,
		invoiceIssueCmd, invoiceCancelCmd, invoiceDeleteCmd, invoiceReportCmd)

	invoiceCmd.PersistentFlags().Int("timeout", 60, "Operation timeout in seconds")

	invoiceCreateCmd.Flags().String("customer", "", "Customer ID (C#####)")
	invoiceCreateCmd.Flags().String("advertiser", "", "Advertiser name")
	invoiceCreateCmd.Flags().String("subject", "", "Invoice subject")
	invoiceCreateCmd.Flags().Int64("unit-price", 0, "Unit price in yen")
	invoiceCreateCmd.Flags().String("notes", "", "Free-form notes")
	invoiceCreateCmd.Flags().String("issue-date", "", "Issue date (YYYY-MM-DD, default today)")

	invoiceListCmd.Flags().String("customer", "", "Filter by customer ID")
	invoiceListCmd.Flags().String("advertiser", "", "Filter by advertiser substring")
	invoiceListCmd.Flags().String("status", "", "Filter by status (DRAFT/ISSUED/CANCELLED)")
	invoiceListCmd.Flags().String("from", "", "Filter by issue date from (YYYY-MM-DD)")
	invoiceListCmd.Flags().String("to", "", "Filter by issue date to (YYYY-MM-DD)")
}
