package main

import (
	"context"

	"request-monitor/src/config"
	"request-monitor/src/logger"
	"request-monitor/src/models"
	"request-monitor/src/storage"

	"github.com/spf13/cobra"
)

// -----------------------------------------------------------------------------

// loadConfig reads --config, falling back to the built-in defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default()
	}
	return config.NewConfig(path)
}

// -----------------------------------------------------------------------------

func setupLogger(conf *config.Config) *logger.Logger {
	return logger.NewLogger(conf.LogLevel, conf.Name)
}

// -----------------------------------------------------------------------------

// setupDatabase initializes the database connection based on config
func setupDatabase(ctx context.Context, cfg *models.MConfig, appLogger *logger.Logger) (*storage.BreakerDB, error) {
	db, err := storage.Open(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to init db: %v", err)
		return nil, err
	}
	return db, nil
}
