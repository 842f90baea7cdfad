package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/driveclone/internal/server"
	"github.com/desertthunder/driveclone/internal/services"
	"github.com/desertthunder/driveclone/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const oauthTimeout = 2 * time.Minute

// AuthLogin performs the OAuth2 authorization flow for Google Drive.
//
// Starts a local HTTP server, opens the browser for user consent and exchanges the auth code for tokens,
// which are saved to the config file.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.useConfig(cmd); err != nil {
		return err
	}

	drive, err := r.requireDrive()
	if err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, drive, "authorization")
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	if r.configPath != "" {
		r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	}
	r.writePlain("You can now use: driveclone clone add <link>\n")
	return nil
}

// AuthLogout revokes the saved token with Google and removes it from the config file.
// A failed revocation is logged; the local token is removed regardless.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.useConfig(cmd); err != nil {
		return err
	}

	if r.config.Credentials.Google.Token() == nil {
		return r.writePlain("Not signed in\n")
	}

	if r.drive != nil {
		if err := r.drive.Revoke(ctx); err != nil {
			r.logger.Warn("failed to revoke token", "error", err)
		}
		r.drive.SetToken(nil)
	}

	r.config.Credentials.Google.ClearToken()
	if r.configPath != "" {
		if err := shared.SaveConfig(r.configPath, r.config); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
	}

	r.logger.Info("signed out")
	return r.writePlain("✓ Signed out\n")
}

// AuthStatus reports the signed-in account and its storage quota.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.useConfig(cmd); err != nil {
		return err
	}

	drive, err := r.requireDrive()
	if err != nil {
		return err
	}

	if !drive.Authenticated() {
		r.writePlain("Authentication: ✗ Not authenticated\n")
		return r.writePlain("Run 'driveclone auth login' to connect your Google account\n")
	}

	about, err := drive.About(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrTokenExpired) || errors.Is(err, shared.ErrNotAuthenticated) {
			r.writePlain("Authentication: ✗ Token expired or revoked\n")
			return r.writePlain("Run 'driveclone auth login' to sign in again\n")
		}
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(about, true)
	}

	quota := about.StorageQuota
	r.writePlain("Authentication: ✓ Authenticated\n")
	r.writePlain("Account: %s <%s>\n", about.User.DisplayName, about.User.EmailAddress)
	r.writePlain("Storage: %s of %s used (%.1f%%)\n",
		shared.FormatBytes(quota.UsageBytes()), shared.FormatBytes(quota.LimitBytes()), quota.UsedPercent())
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, oauthSrv services.OAuthService, prefix string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthSrv.AuthURL(state)
	oauthHandler := server.NewOAuthHandler(oauthSrv, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server for %s at %v", prefix, serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Google %s...\n", prefix)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(oauthTimeout)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		err = fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		err = ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		r.logger.Warn("error shutting down server", "error", shutdownErr)
	}

	if err != nil {
		return nil, err
	}
	if result.Error() != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}
