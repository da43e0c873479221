package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/sp2yt/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing, then initializes the database and runs migrations.
//
// With --rollback it reverts the most recent migration instead.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err := shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
			} else {
				r.config = config
			}
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database)

	if cmd.Bool("rollback") {
		r.logger.Info("rolling back last migration")
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		return r.writePlain("✓ Rolled back the last migration of %s\n", r.config.Database.Path)
	}

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)

	r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
	if err := r.config.Validate(); err != nil {
		r.writePlainln("Next steps:")
		r.writePlain("1. Fill in %s (%v)\n", configPath, err)
		r.writePlain("2. Run 'sp2yt auth login' to authorize YouTube\n")
	}
	return nil
}
