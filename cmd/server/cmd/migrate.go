package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/campusreg/server/internal/storage/postgres"
)

var (
	migrationsPath string
	downSteps      int

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
		Long: `Apply, roll back, or inspect the database schema.

The up command also installs the job queue schema used for confirmation
emails, so a single invocation prepares a fresh database completely.`,
	}

	migrateUpCmd = &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			if err := postgres.MigrateUp(cfg.Database.URL, migrationsPath); err != nil {
				return fmt.Errorf("failed to apply migrations: %w", err)
			}

			// The job queue tables live alongside the application schema.
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			pool, err := postgres.NewPool(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			if err := postgres.MigrateRiver(ctx, pool); err != nil {
				return fmt.Errorf("failed to apply job queue migrations: %w", err)
			}

			fmt.Println("Migrations applied successfully")
			return nil
		},
	}

	migrateDownCmd = &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long: `Roll back the most recent migrations.

By default rolls back one migration. Use --steps to roll back more.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			if err := postgres.MigrateDown(cfg.Database.URL, migrationsPath, downSteps); err != nil {
				return fmt.Errorf("failed to roll back migrations: %w", err)
			}

			fmt.Printf("Rolled back %d migration(s)\n", downSteps)
			return nil
		},
	}

	migrateStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			version, dirty, err := postgres.MigrationVersion(cfg.Database.URL, migrationsPath)
			if err != nil {
				return fmt.Errorf("failed to read migration version: %w", err)
			}

			if version == 0 {
				fmt.Println("No migrations applied")
				return nil
			}

			if dirty {
				fmt.Printf("Version: %d (dirty - a migration failed partway, manual repair needed)\n", version)
			} else {
				fmt.Printf("Version: %d\n", version)
			}
			return nil
		},
	}
)

func init() {
	migrateCmd.PersistentFlags().StringVar(&migrationsPath, "migrations", postgres.DefaultMigrationsPath, "path to migration files")
	migrateDownCmd.Flags().IntVar(&downSteps, "steps", 1, "number of migrations to roll back")

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}
