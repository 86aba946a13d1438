package services

import (
	"context"

	"github.com/desertthunder/albumranker/internal/models"
)

// AuthorizationServer is the external OAuth surface the credential lifecycle depends on.
//
// Implemented by [SpotifyService]; faked in tests.
type AuthorizationServer interface {
	// AuthorizeURL builds the user-facing authorization URL carrying the
	// configured scopes and the caller's anti-forgery state token.
	AuthorizeURL(state string) string

	// ExchangeCode completes the authorization-code grant, returning formatted
	// credentials whose expiry already includes the safety margin.
	ExchangeCode(ctx context.Context, code string) (models.SpotifyCredentials, error)

	// Refresh exchanges a refresh token for a new access token.
	Refresh(ctx context.Context, refreshToken string) (models.SpotifyCredentials, error)
}

// CatalogClient is an API client bound to a valid access token.
type CatalogClient interface {
	// SavedAlbums retrieves one page of the user's saved albums.
	SavedAlbums(ctx context.Context, limit, offset int) (*SpotifyPaginatedAlbums, error)

	// UserProfile retrieves the authenticated user's Spotify profile.
	UserProfile(ctx context.Context) (*SpotifyUser, error)
}
