package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/deniro0912/gas-invoice/internal/apperr"
	"github.com/deniro0912/gas-invoice/internal/config"
	"github.com/deniro0912/gas-invoice/internal/repository"
	"github.com/deniro0912/gas-invoice/internal/retry"
	"github.com/deniro0912/gas-invoice/internal/service"
	"github.com/deniro0912/gas-invoice/internal/store"
)

// app bundles the wired services a command works with.
type app struct {
	customers *service.CustomerService
	invoices  *service.InvoiceService
}

// buildApp loads the configuration and wires store, repositories and
// services. With --dry-run the spreadsheet is replaced by an empty
// in-memory store.
func buildApp(ctx context.Context, cmd *cobra.Command, log zerolog.Logger) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	schemas := repository.Schemas(cfg.CustomerSheet, cfg.InvoiceSheet, cfg.InvoiceItemSheet)

	var st store.Store
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if dryRun {
		log.Info().Msg("Dry run: using in-memory store")
		st = store.NewMemoryStore(schemas)
	} else {
		sheetsStore, err := store.NewSheetsStore(ctx, cfg.GoogleSheetURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create sheets store: %w", err)
		}
		if err := sheetsStore.EnsureSheets(ctx, schemas); err != nil {
			return nil, fmt.Errorf("failed to prepare worksheets: %w", err)
		}
		st = sheetsStore
	}

	policy := retry.Policy{MaxAttempts: cfg.RetryMaxAttempts, BaseDelay: cfg.RetryBaseDelay}
	customerRepo := repository.NewCustomerRepository(st, cfg.CustomerSheet, policy)
	invoiceRepo := repository.NewInvoiceRepository(st, cfg.InvoiceSheet, cfg.InvoiceItemSheet, policy)

	return &app{
		customers: service.NewCustomerService(customerRepo, invoiceRepo),
		invoices:  service.NewInvoiceService(invoiceRepo, customerRepo),
	}, nil
}

// commandContext creates a context with the given timeout that is also
// cancelled on SIGINT/SIGTERM.
func commandContext(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("Received signal, cancelling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// renderError prints the fixed user-facing sentence for err and returns
// err for the exit status.
func renderError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Operation failed")
	fmt.Fprintln(os.Stderr, apperr.UserMessage(err))
	return err
}
