package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deniro0912/gas-invoice/internal/logger"
	"github.com/deniro0912/gas-invoice/pkg/models"
)

var customerCmd = &cobra.Command{
	Use:   "customer",
	Short: "Manage customers",
}

var customerCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new customer",
	Example: `  # Minimal registration
  gas-invoice customer create --company "株式会社サンプル"

  # Full registration
  gas-invoice customer create --company "株式会社サンプル" \
    --contact "山田太郎" --postal 100-0001 --address "東京都千代田区" \
    --email info@example.co.jp --phone 03-1234-5678`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.WithComponent("customer-cmd")

		timeoutSecs, _ := cmd.Flags().GetInt("timeout")
		ctx, cancel := commandContext(timeoutSecs, log)
		defer cancel()

		a, err := buildApp(ctx, cmd, log)
		if err != nil {
			return renderError(err, log)
		}

		in := models.NewCustomerInput{}
		in.CompanyName, _ = cmd.Flags().GetString("company")
		in.ContactPerson, _ = cmd.Flags().GetString("contact")
		in.PostalCode, _ = cmd.Flags().GetString("postal")
		in.Address, _ = cmd.Flags().GetString("address")
		in.Email, _ = cmd.Flags().GetString("email")
		in.PhoneNumber, _ = cmd.Flags().GetString("phone")

		customer, err := a.customers.Create(ctx, in)
		if err != nil {
			return renderError(err, log)
		}
		return printJSON(customer)
	},
}

var customerGetCmd = &cobra.Command{
	Use:   "get [customer-id]",
	Short: "Show one customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.WithComponent("customer-cmd")

		timeoutSecs, _ := cmd.Flags().GetInt("timeout")
		ctx, cancel := commandContext(timeoutSecs, log)
		defer cancel()

		a, err := buildApp(ctx, cmd, log)
		if err != nil {
			return renderError(err, log)
		}

		customer, err := a.customers.Get(ctx, args[0])
		if err != nil {
			return renderError(err, log)
		}
		return printJSON(customer)
	},
}

var customerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List customers, optionally filtered by company name",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.WithComponent("customer-cmd")

		timeoutSecs, _ := cmd.Flags().GetInt("timeout")
		ctx, cancel := commandContext(timeoutSecs, log)
		defer cancel()

		a, err := buildApp(ctx, cmd, log)
		if err != nil {
			return renderError(err, log)
		}

		company, _ := cmd.Flags().GetString("company")
		customers, err := a.customers.Search(ctx, models.CustomerFilter{CompanyName: company})
		if err != nil {
			return renderError(err, log)
		}
		return printJSON(customers)
	},
}

var customerUpdateCmd = &cobra.Command{
	Use:   "update [customer-id]",
	Short: "Partially update a customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.WithComponent("customer-cmd")

		timeoutSecs, _ := cmd.Flags().GetInt("timeout")
		ctx, cancel := commandContext(timeoutSecs, log)
		defer cancel()

		a, err := buildApp(ctx, cmd, log)
		if err != nil {
			return renderError(err, log)
		}

		patch := models.CustomerPatch{}
		if cmd.Flags().Changed("company") {
			v, _ := cmd.Flags().GetString("company")
			patch.CompanyName = &v
		}
		if cmd.Flags().Changed("contact") {
			v, _ := cmd.Flags().GetString("contact")
			patch.ContactPerson = &v
		}
		if cmd.Flags().Changed("postal") {
			v, _ := cmd.Flags().GetString("postal")
			patch.PostalCode = &v
		}
		if cmd.Flags().Changed("address") {
			v, _ := cmd.Flags().GetString("address")
			patch.Address = &v
		}
		if cmd.Flags().Changed("email") {
			v, _ := cmd.Flags().GetString("email")
			patch.Email = &v
		}
		if cmd.Flags().Changed("phone") {
			v, _ := cmd.Flags().GetString("phone")
			patch.PhoneNumber = &v
		}

		customer, err := a.customers.Update(ctx, args[0], patch)
		if err != nil {
			return renderError(err, log)
		}
		return printJSON(customer)
	},
}

var customerDeleteCmd = &cobra.Command{
	Use:   "delete [customer-id]",
	Short: "Delete a customer without invoices",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.WithComponent("customer-cmd")

		timeoutSecs, _ := cmd.Flags().GetInt("timeout")
		ctx, cancel := commandContext(timeoutSecs, log)
		defer cancel()

		a, err := buildApp(ctx, cmd, log)
		if err != nil {
			return renderError(err, log)
		}

		if err := a.customers.Delete(ctx, args[0]); err != nil {
			return renderError(err, log)
		}
		return printJSON(map[string]string{"deleted": args[0]})
	},
}

var customerStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show customer-base statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.WithComponent("customer-cmd")

		timeoutSecs, _ := cmd.Flags().GetInt("timeout")
		ctx, cancel := commandContext(timeoutSecs, log)
		defer cancel()

		a, err := buildApp(ctx, cmd, log)
		if err != nil {
			return renderError(err, log)
		}

		stats, err := a.customers.Stats(ctx)
		if err != nil {
			return renderError(err, log)
		}
		return printJSON(stats)
	},
}

func init() {
	rootCmd.AddCommand(customerCmd)
	customerCmd.AddCommand(customerCreateCmd, customerGetCmd, customerListCmd,
		customerUpdateCmd, customerDeleteCmd, customerStatsCmd)

	customerCmd.PersistentFlags().Int("timeout", 60, "Operation timeout in seconds")

	for _, c := range []*cobra.Command{customerCreateCmd, customerUpdateCmd} {
		c.Flags().String("company", "", "Company name")
		c.Flags().String("contact", "", "Contact person")
		c.Flags().String("postal", "", "Postal code (NNN-NNNN)")
		c.Flags().String("address", "", "Address")
		c.Flags().String("email", "", "Email address")
		c.Flags().String("phone", "", "Phone number")
	}
	customerListCmd.Flags().String("company", "", "Filter by company name substring")
}
