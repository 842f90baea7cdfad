package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/desertthunder/driveclone/internal/services"
	"github.com/desertthunder/driveclone/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat(defaultConfigPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(defaultConfigPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}

	if err := shared.ApplyEnv(config, ".env"); err != nil {
		logger.Warn("failed to apply environment", "error", err)
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))

	opts := RunnerOpts{
		Config:     config,
		ConfigPath: defaultConfigPath,
		API:        services.NewAPIService(config.API.BaseURL, nil),
		Logger:     logger,
	}

	if drive, err := newDrive(config, nil); err != nil {
		logger.Warn("google drive client unavailable", "error", err)
	} else if drive != nil {
		opts.Drive = drive
	}

	runner := NewRunner(opts)
	defer runner.Close()

	app := &cli.Command{
		Name:     "driveclone",
		Usage:    "Clone Google Drive files and folders into your own Drive",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		runner.Close()
		logger.Fatalf("application error: %v", err)
	}
}

// newDrive builds a Drive client from config, restoring any saved token.
// It returns nil without an error when no OAuth client is configured.
func newDrive(config *shared.Config, client *http.Client) (*services.DriveService, error) {
	google := config.Credentials.Google
	if !google.HasClient() {
		return nil, nil
	}

	drive, err := services.NewDriveService(services.DriveOpts{
		ClientID:          google.ClientID,
		ClientSecret:      google.ClientSecret,
		RedirectURL:       google.RedirectURI,
		BaseURL:           config.Drive.BaseURL,
		RequestsPerSecond: config.Drive.RequestsPerSecond,
		HTTPClient:        client,
	})
	if err != nil {
		return nil, err
	}

	if token := google.Token(); token != nil {
		drive.SetToken(token)
	}
	return drive, nil
}
