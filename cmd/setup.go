package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/songbridge/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the database and runs migrations.
//
// A missing config file is created from the embedded example first.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if config == nil {
		if _, err := os.Stat(configPath); err != nil {
			r.logger.Info("config file not found, creating from template", "path", configPath)
			if err := shared.CreateConfigFile(configPath); err != nil {
				r.logger.Warn("failed to create config file, using defaults", "error", err)
			}
		}

		loaded, err := shared.LoadConfigOrDefault(configPath)
		if err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			loaded = shared.DefaultConfig()
		}
		config = loaded
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.Path, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	applied, err := shared.AppliedVersions(db)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("%s database ready at %s (%d migrations applied)\n", styles.OK("✓"), config.Database.Path, len(applied))
	return nil
}

// SetupConfig writes the example configuration to --config.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", configPath)
	r.writePlain("%s config written to %s\n", styles.OK("✓"), configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set session.secret (at least %d bytes) or SONGBRIDGE_SESSION_SECRET\n", shared.MinSecretLength)
	r.writePlain("2. Fill in the Spotify and Google client credentials\n")
	r.writePlain("3. Run 'songbridge serve --open' and link both accounts\n")
	return nil
}
