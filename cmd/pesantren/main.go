// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command pesantren runs the pesantren website and its admin dashboard.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/olegiv/pesantren-go/internal/config"
	"github.com/olegiv/pesantren-go/internal/store"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "pesantren <command>",
	Short:         "Pesantren website and admin dashboard",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env files are a development convenience; a missing file is fine.
		if envFile != "" {
			_ = godotenv.Load(envFile)
		} else {
			_ = godotenv.Load()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from this file (default .env)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "server", Title: "Server:"},
		&cobra.Group{ID: "data", Title: "Data:"},
	)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration and installs the stdout logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ensureDataDir creates the directory of the SQLite database file.
func ensureDataDir(cfg *config.Config) error {
	if cfg.DBDriver != config.DriverSQLite {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o750); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// openDatabase connects to and migrates the configured database.
func openDatabase(cfg *config.Config) (*sql.DB, store.Dialect, error) {
	if err := ensureDataDir(cfg); err != nil {
		return nil, "", err
	}
	target := cfg.DBPath
	if cfg.DBDriver == config.DriverPostgres {
		target = cfg.DatabaseURL
	}
	db, dialect, err := store.Open(cfg.DBDriver, target)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}
	if err := store.Migrate(db, dialect); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("running migrations: %w", err)
	}
	return db, dialect, nil
}
