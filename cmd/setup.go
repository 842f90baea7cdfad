package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/driveclone/internal/repositories"
	"github.com/desertthunder/driveclone/internal/services"
	"github.com/desertthunder/driveclone/internal/shared"
	"github.com/urfave/cli/v3"
)

// useConfig switches to the file named by an explicit --config flag and rebuilds the clients that depend on it.
func (r *Runner) useConfig(cmd *cli.Command) error {
	if !cmd.IsSet("config") {
		return nil
	}

	path := cmd.String("config")
	if path == r.configPath && r.config != nil {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", shared.ErrMissingConfig, path)
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}
	if err := shared.ApplyEnv(config, ""); err != nil {
		return err
	}

	r.config = config
	r.configPath = path
	r.api = services.NewAPIService(config.API.BaseURL, r.httpClient)

	drive, err := newDrive(config, r.httpClient)
	if err != nil {
		return err
	}
	if drive != nil {
		r.drive = drive
	}

	r.logger.Debug("using config", "path", path)
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
		}
	}

	if _, err := os.Stat(configPath); err == nil {
		config, err := shared.LoadConfig(configPath)
		if err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
		} else {
			r.config = config
			r.configPath = configPath
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	applied, err := shared.AppliedVersions(db)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	jobs, err := repositories.NewJobRepository(db).List("")
	if err != nil {
		return fmt.Errorf("failed to count jobs: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
	r.writePlain("  Migrations applied: %d\n", len(applied))
	r.writePlain("  Jobs on record: %d\n", len(jobs))
	return nil
}

// SetupRollback undoes the last --steps migrations without re-applying pending ones first.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	if err := r.useConfig(cmd); err != nil {
		return err
	}

	steps := int(cmd.Int("steps"))
	if steps < 1 {
		return fmt.Errorf("%w: --steps must be at least 1", shared.ErrInvalidArgument)
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	shared.ConfigureDatabase(db, 1, 1)

	for i := range steps {
		if err := shared.RollbackMigration(db); err != nil {
			if i > 0 {
				r.writePlain("✓ Rolled back %d migrations\n", i)
			}
			return err
		}
	}

	applied, err := shared.AppliedVersions(db)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	r.logger.Info("migrations rolled back", "steps", steps, "path", r.config.Database.Path)
	r.writePlain("✓ Rolled back %d migrations\n", steps)
	r.writePlain("  Migrations applied: %d\n", len(applied))
	return nil
}

// SetupConfig writes the config template to --config.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if cmd.Bool("force") {
		if err := os.Remove(configPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to replace config file: %w", err)
		}
	}

	if err := shared.CreateConfigFile(configPath); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	r.logger.Info("config file created", "path", configPath)
	r.writePlain("✓ Config written to %s\n", configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.google.client_id and client_secret (or GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET)\n")
	r.writePlain("2. Run 'driveclone auth login' to connect your Google account\n")
	return nil
}
