package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/albumranker/internal/models"
	"github.com/desertthunder/albumranker/internal/server"
	"github.com/desertthunder/albumranker/internal/shared"
	"github.com/urfave/cli/v3"
)

// SpotifyLink performs the OAuth2 authorization flow and stores the resulting
// credentials for the account.
//
// Starts a local HTTP server, opens the browser for user authorization, and
// exchanges the auth code for tokens at the callback.
func (r *Runner) SpotifyLink(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}
	if err := r.requireSpotify(); err != nil {
		return err
	}

	user, err := r.resolveUser(cmd)
	if err != nil {
		return err
	}

	creds, err := r.doOAuth(ctx)
	if err != nil {
		return err
	}

	if err := r.auth.Link(user.ID(), creds); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Spotify account linked for %s\n\n", user.Email())
	r.writePlain("You can now use: albumranker sync --email %s\n", user.Email())

	return nil
}

// SpotifyUnlink removes stored credentials and the synced catalog.
func (r *Runner) SpotifyUnlink(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}
	if err := r.requireSpotify(); err != nil {
		return err
	}

	user, err := r.resolveUser(cmd)
	if err != nil {
		return err
	}

	if err := r.auth.Unlink(user.ID()); err != nil {
		return err
	}

	r.writePlain("✓ Spotify account unlinked for %s\n", user.Email())
	return nil
}

// SpotifyStatus shows whether the account is linked and when its access token expires.
func (r *Runner) SpotifyStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	user, err := r.resolveUser(cmd)
	if err != nil {
		return err
	}

	creds, err := r.credentials.Get(user.ID())
	if err != nil {
		return err
	}

	r.writePlain("Account: %s\n", user.Email())
	if creds == nil {
		r.writePlain("Spotify: ✗ Not linked\n")
		return nil
	}

	r.writePlain("Spotify: ✓ Linked\n")
	if creds.Expired(time.Now()) {
		r.writePlain("Access token: expired (refreshes on next sync)\n")
	} else {
		r.writePlain("Access token: valid until %s\n", creds.ExpiresAt.Format(time.RFC3339))
	}

	count, err := r.albums.Count(user.ID())
	if err != nil {
		return err
	}
	r.writePlain("Synced albums: %d\n", count)

	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context) (models.SpotifyCredentials, error) {
	var none models.SpotifyCredentials

	state, err := shared.GenerateState()
	if err != nil {
		return none, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := r.auth.AuthorizeURL(state)
	oauthHandler := server.NewOAuthHandler(r.authServer, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return none, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return none, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return none, fmt.Errorf("%w: %v", shared.ErrAuthorizationFailed, result.Error())
	}

	return result.Credentials, nil
}
