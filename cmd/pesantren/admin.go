// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/olegiv/pesantren-go/internal/auth"
	"github.com/olegiv/pesantren-go/internal/model"
)

// passwordEnv supplies the password when --password is not given, keeping
// it out of the shell history.
const passwordEnv = "PESANTREN_ADMIN_PASSWORD"

var (
	adminEmail    string
	adminPassword string
)

var adminCmd = &cobra.Command{
	Use:     "admin",
	Short:   "Manage dashboard administrators",
	GroupID: "data",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user with the admin role",
	RunE: func(cmd *cobra.Command, args []string) error {
		password := adminPassword
		if password == "" {
			password = os.Getenv(passwordEnv)
		}
		if len(password) < auth.MinPasswordLength {
			return fmt.Errorf("password must be at least %d characters (use --password or %s)", auth.MinPasswordLength, passwordEnv)
		}

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		db, dialect, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		ctx := contextOf(cmd)
		svc := auth.NewService(db, dialect, nil)
		u, err := svc.CreateUser(ctx, adminEmail, password)
		if err != nil {
			return err
		}
		if err := svc.GrantRole(ctx, u.ID, model.RoleAdmin); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created administrator %s (%s)\n", u.Email, u.ID)
		return nil
	},
}

var adminGrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Grant the admin role to an existing user",
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

		ctx := contextOf(cmd)
		svc := auth.NewService(db, dialect, nil)
		u, err := svc.GetUserByEmail(ctx, adminEmail)
		if err != nil {
			return fmt.Errorf("looking up user: %w", err)
		}
		if u == nil {
			return errors.New("no user with email " + adminEmail)
		}
		if err := svc.GrantRole(ctx, u.ID, model.RoleAdmin); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "granted %s to %s\n", model.RoleAdmin, u.Email)
		return nil
	},
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminEmail, "email", "", "administrator email address")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "administrator password (default $"+passwordEnv+")")
	_ = adminCreateCmd.MarkFlagRequired("email")

	adminGrantCmd.Flags().StringVar(&adminEmail, "email", "", "email address of the user")
	_ = adminGrantCmd.MarkFlagRequired("email")

	adminCmd.AddCommand(adminCreateCmd)
	adminCmd.AddCommand(adminGrantCmd)
}
