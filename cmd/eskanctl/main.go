// Command eskanctl runs maintenance tasks against the Eskan database.
package main

import (
	"fmt"
	"os"

	"eskan-backend/internal/config"
	"eskan-backend/internal/database"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cfg := config.Load()

	root := &cobra.Command{
		Use:          "eskanctl",
		Short:        "Eskan maintenance tool",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("driver", database.DriverPostgres, "database driver (postgres or sqlite)")
	root.PersistentFlags().String("dsn", cfg.DatabaseURL, "database connection string")
	root.PersistentFlags().Bool("debug", false, "log SQL statements")

	root.AddCommand(migrateCmd(), createAdminCmd())
	return root
}

func openDB(cmd *cobra.Command) (*gorm.DB, error) {
	driver, _ := cmd.Flags().GetString("driver")
	dsn, _ := cmd.Flags().GetString("dsn")
	debug, _ := cmd.Flags().GetBool("debug")

	level := logger.Silent
	if debug {
		level = logger.Info
	}
	return database.Connect(driver, dsn, level)
}
