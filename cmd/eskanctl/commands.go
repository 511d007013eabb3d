package main

import (
	"errors"
	"fmt"

	"eskan-backend/internal/database"
	"eskan-backend/internal/services"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a staff account with an admin profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if username == "" || password == "" {
				return errors.New("--username and --password are required")
			}

			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			accounts := services.NewAccountService(db, services.AccountDeps{})
			user, err := accounts.CreateAdmin(cmd.Context(), username, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().String("username", "", "admin username")
	cmd.Flags().String("email", "", "admin email")
	cmd.Flags().String("password", "", "admin password")
	return cmd
}
