package main

import (
	stdlog "log"

	"posterm/cmd"
	"posterm/internal/config"
	"posterm/internal/logger"
)

func main() {
	// Load configuration (reads .env and the environment)
	cfg := config.Load()

	// Initialize logger with configuration
	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		stdlog.Fatalf("Failed to initialize logger: %v", err)
	}

	// Log application startup
	log := logger.WithComponent("main")
	log.Info().Msg("Starting posterm")

	// Execute CLI commands
	cmd.Execute()

	log.Info().Msg("posterm shutdown")
}
