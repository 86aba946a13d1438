package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/albumranker/internal/models"
	"github.com/desertthunder/albumranker/internal/repositories"
	"github.com/desertthunder/albumranker/internal/shared"
)

// nowFunc is swapped out in tests to control expiry decisions.
var nowFunc = time.Now

// SpotifyAuth owns the stored-credential lifecycle for linked accounts:
// completing authorization, keeping tokens fresh, and handing out bound
// API clients without exposing raw tokens to callers.
type SpotifyAuth struct {
	credentials *repositories.CredentialRepository
	server      AuthorizationServer
	httpClient  *http.Client
	logger      *log.Logger
}

// NewSpotifyAuth creates the credential lifecycle manager.
func NewSpotifyAuth(credentials *repositories.CredentialRepository, server AuthorizationServer, logger *log.Logger) *SpotifyAuth {
	return &SpotifyAuth{
		credentials: credentials,
		server:      server,
		httpClient:  http.DefaultClient,
		logger:      logger,
	}
}

// AuthorizeURL returns the URL the user visits to grant access.
func (a *SpotifyAuth) AuthorizeURL(state string) string {
	return a.server.AuthorizeURL(state)
}

// CompleteAuthorization exchanges the callback code and persists the
// encrypted credentials for userID. Nothing is stored when the exchange
// fails.
func (a *SpotifyAuth) CompleteAuthorization(ctx context.Context, userID string, code string) error {
	creds, err := a.server.ExchangeCode(ctx, code)
	if err != nil {
		return err
	}
	return a.Link(userID, creds)
}

// Link persists exchanged credentials for userID. An existing link is
// replaced rather than rejected.
func (a *SpotifyAuth) Link(userID string, creds models.SpotifyCredentials) error {
	if err := a.credentials.Save(userID, creds); err != nil {
		if errors.Is(err, shared.ErrAlreadyLinked) {
			// Re-authorization of an already linked account replaces the
			// stored tokens instead of failing.
			if _, uerr := a.credentials.Update(userID, creds); uerr != nil {
				return uerr
			}
			return nil
		}
		return err
	}

	a.logger.Info("linked spotify account", "user_id", userID)
	return nil
}

// EnsureValid returns credentials usable right now. Unexpired credentials
// are returned as-is without touching the network; expired ones are
// exchanged via the refresh token.
//
// The returned credentials preserve the stored refresh token unless the
// authorization server rotated it.
func (a *SpotifyAuth) EnsureValid(ctx context.Context, creds models.SpotifyCredentials) (models.SpotifyCredentials, bool, error) {
	if !creds.Expired(nowFunc()) {
		return creds, false, nil
	}

	refreshed, err := a.server.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		return models.SpotifyCredentials{}, false, err
	}

	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = creds.RefreshToken
	}

	return refreshed, true, nil
}

// ClientFor returns an API client bound to a valid access token for userID,
// refreshing and re-persisting credentials when needed. A nil client with a
// nil error means the user has not linked a Spotify account.
func (a *SpotifyAuth) ClientFor(ctx context.Context, userID string) (CatalogClient, error) {
	creds, err := a.credentials.Get(userID)
	if err != nil {
		return nil, err
	}
	if creds == nil {
		return nil, nil
	}

	valid, refreshed, err := a.EnsureValid(ctx, *creds)
	if err != nil {
		return nil, err
	}

	if refreshed {
		toStore := valid
		if toStore.RefreshToken == creds.RefreshToken {
			// An unrotated refresh token keeps its existing ciphertext.
			toStore.RefreshToken = ""
		}
		if _, err := a.credentials.Update(userID, toStore); err != nil {
			return nil, fmt.Errorf("failed to persist refreshed credentials: %w", err)
		}
		a.logger.Debug("refreshed spotify credentials", "user_id", userID, "expires_at", valid.ExpiresAt)
	}

	return NewSpotifyClient(valid.AccessToken, a.httpClient), nil
}

// IsLinked reports whether userID has stored Spotify credentials.
func (a *SpotifyAuth) IsLinked(userID string) (bool, error) {
	creds, err := a.credentials.Get(userID)
	if err != nil {
		return false, err
	}
	return creds != nil, nil
}

// Unlink removes the stored credentials and synced catalog for userID.
func (a *SpotifyAuth) Unlink(userID string) error {
	if err := a.credentials.Delete(userID); err != nil {
		return err
	}
	a.logger.Info("unlinked spotify account", "user_id", userID)
	return nil
}
