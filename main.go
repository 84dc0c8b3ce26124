package main

import (
	stdlog "log"

	"github.com/joho/godotenv"

	"github.com/deniro0912/gas-invoice/cmd"
	"github.com/deniro0912/gas-invoice/internal/config"
	"github.com/deniro0912/gas-invoice/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		stdlog.Printf("Warning: Could not load .env file: %v", err)
	}

	// Initialize logging; commands reload the full configuration with
	// their own error handling, so a failure here only costs log settings.
	cfg, err := config.Load()
	if err != nil {
		if err := logger.Setup(logger.DefaultConfig()); err != nil {
			stdlog.Fatalf("Failed to initialize logger: %v", err)
		}
	} else {
		if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
			stdlog.Fatalf("Failed to initialize logger: %v", err)
		}
	}

	log := logger.WithComponent("main")
	log.Debug().Msg("Starting gas-invoice")

	cmd.Execute()
}
