// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/olegiv/pesantren-go/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:     "migrate",
	Short:   "Apply pending database migrations",
	GroupID: "data",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		db, dialect, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		slog.Info("database migrated", "driver", dialect)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:     "seed",
	Short:   "Create the profile and contact rows if they are missing",
	GroupID: "data",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		db, dialect, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := store.Seed(contextOf(cmd), db, dialect); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
		return nil
	},
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
