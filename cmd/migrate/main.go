package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/automail/automail/internal/config"
	"github.com/automail/automail/internal/database"
	"github.com/automail/automail/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tool for automail",
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Run all pending migrations",
	RunE:  runUp,
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Rollback the last migration",
	RunE:  runDown,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE:  runStatus,
}

var createCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a new migration file pair for every driver",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreate,
}

var migrationsDir string

func init() {
	createCmd.Flags().StringVar(&migrationsDir, "dir", "internal/database/migrations", "migrations source directory")

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(createCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// getMigrator connects without migrating. Closing the migrator closes the
// underlying connection too.
func getMigrator(ctx context.Context) (*migrate.Migrate, string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, "", fmt.Errorf("failed to connect to database: %w", err)
	}

	m, err := db.Migrator()
	if err != nil {
		db.Close()
		return nil, "", err
	}
	return m, db.Driver(), nil
}

func runUp(cmd *cobra.Command, args []string) error {
	log := logger.New("info", "text")

	m, driver, err := getMigrator(cmd.Context())
	if err != nil {
		return err
	}
	defer m.Close()

	log.Info().Str("driver", driver).Msg("running migrations...")
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Info().Msg("migrations completed successfully")
	return nil
}

func runDown(cmd *cobra.Command, args []string) error {
	log := logger.New("info", "text")

	m, driver, err := getMigrator(cmd.Context())
	if err != nil {
		return err
	}
	defer m.Close()

	log.Info().Str("driver", driver).Msg("rolling back last migration...")
	if err := m.Steps(-1); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	log.Info().Msg("rollback completed successfully")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	m, driver, err := getMigrator(cmd.Context())
	if err != nil {
		return err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Printf("Driver: %s\nNo migrations have been applied\n", driver)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}

	fmt.Printf("Driver: %s\n", driver)
	fmt.Printf("Current version: %d\n", version)
	fmt.Printf("Dirty: %v\n", dirty)
	return nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	name := args[0]

	for _, driver := range []string{database.DriverSQLite, database.DriverPostgres} {
		dir := filepath.Join(migrationsDir, driver)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create migrations directory: %w", err)
		}

		version, err := nextVersion(dir)
		if err != nil {
			return err
		}

		upFile := filepath.Join(dir, fmt.Sprintf("%06d_%s.up.sql", version, name))
		downFile := filepath.Join(dir, fmt.Sprintf("%06d_%s.down.sql", version, name))

		if err := os.WriteFile(upFile, []byte("-- Add migration SQL here\n"), 0o644); err != nil {
			return fmt.Errorf("failed to create up migration: %w", err)
		}
		if err := os.WriteFile(downFile, []byte("-- Add rollback SQL here\n"), 0o644); err != nil {
			return fmt.Errorf("failed to create down migration: %w", err)
		}

		fmt.Printf("Created migration files:\n  %s\n  %s\n", upFile, downFile)
	}
	return nil
}

// nextVersion returns one past the highest numeric prefix in dir
func nextVersion(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	highest := 0
	for _, entry := range entries {
		prefix, _, ok := strings.Cut(entry.Name(), "_")
		if entry.IsDir() || !ok {
			continue
		}
		if v, err := strconv.Atoi(prefix); err == nil && v > highest {
			highest = v
		}
	}
	return highest + 1, nil
}
