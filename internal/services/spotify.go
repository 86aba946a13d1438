// Spotify accounts + Web API implementation.
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/albumranker/internal/models"
	"github.com/desertthunder/albumranker/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// expiryMargin is subtracted from every token lifetime so that a token
	// judged valid here is never rejected moments later by Spotify due to
	// clock skew or request latency.
	expiryMargin = 5 * time.Minute
)

// spotifyScopes is the fixed scope list requested during authorization.
var spotifyScopes = []string{
	"user-read-playback-state",
	"user-read-currently-playing",
	"user-read-email",
	"playlist-read-private",
	"playlist-modify-private",
	"user-library-read",
	"user-read-recently-played",
	"user-follow-read",
}

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Artists              []SpotifyArtist `json:"artists"`
	ReleaseDate          string          `json:"release_date"`
	ReleaseDatePrecision string          `json:"release_date_precision"` // year, month, or day
	TotalTracks          int             `json:"total_tracks"`
	Images               []SpotifyImage  `json:"images"`
	URI                  string          `json:"uri"`
}

// SpotifySavedAlbum represents an album saved in the user's library.
type SpotifySavedAlbum struct {
	AddedAt string       `json:"added_at"`
	Album   SpotifyAlbum `json:"album"`
}

// SpotifyPaginatedAlbums represents a paginated response of saved albums.
type SpotifyPaginatedAlbums struct {
	Items    []SpotifySavedAlbum `json:"items"`
	Total    int                 `json:"total"`
	Limit    int                 `json:"limit"`
	Offset   int                 `json:"offset"`
	Next     *string             `json:"next"`
	Previous *string             `json:"previous"`
}

// AlbumFromSpotify flattens a Spotify album into the local [models.Album] shape.
//
// All artist names are joined with ", "; the first (largest) image wins.
func AlbumFromSpotify(sa SpotifyAlbum) (models.Album, error) {
	releaseDate, err := parseReleaseDate(sa.ReleaseDate)
	if err != nil {
		return models.Album{}, fmt.Errorf("album %s: %w", sa.ID, err)
	}

	names := make([]string, 0, len(sa.Artists))
	for _, artist := range sa.Artists {
		names = append(names, artist.Name)
	}

	album := models.Album{
		SpotifyID:   sa.ID,
		Name:        sa.Name,
		Artist:      strings.Join(names, ", "),
		SpotifyURI:  sa.URI,
		ReleaseDate: releaseDate,
	}

	if len(sa.Images) > 0 {
		album.ImageURL = sa.Images[0].URL
	}

	return album, nil
}

// parseReleaseDate parses Spotify's variable-precision release dates
// ("2021-05-21", "2021-05", or "2021").
func parseReleaseDate(value string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable release date %q", value)
}

// SpotifyService talks to the Spotify accounts service using [oauth2] for
// the authorization-code grant and refresh-token exchange.
type SpotifyService struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewSpotifyService creates a SpotifyService from the configured application credentials.
func NewSpotifyService(cfg shared.SpotifyConfig) (*SpotifyService, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: spotify client_id", shared.ErrMissingConfig)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_secret", shared.ErrMissingConfig)
	}
	if cfg.RedirectURI == "" {
		return nil, fmt.Errorf("%w: spotify redirect_uri", shared.ErrMissingConfig)
	}

	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       spotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
	}, nil
}

// AuthorizeURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthorizeURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// ExchangeCode exchanges an authorization code for formatted credentials.
func (s *SpotifyService) ExchangeCode(ctx context.Context, code string) (models.SpotifyCredentials, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return models.SpotifyCredentials{}, fmt.Errorf("%w: code exchange: %v", shared.ErrAuthorizationFailed, err)
	}

	return formatCredentials(token), nil
}

// Refresh exchanges a refresh token for fresh credentials.
//
// Spotify usually keeps the refresh token stable; when it does rotate one,
// the returned credentials carry it.
func (s *SpotifyService) Refresh(ctx context.Context, refreshToken string) (models.SpotifyCredentials, error) {
	if refreshToken == "" {
		return models.SpotifyCredentials{}, fmt.Errorf("%w: no refresh token available", shared.ErrRefreshFailed)
	}

	source := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return models.SpotifyCredentials{}, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	creds := formatCredentials(token)
	if token.RefreshToken == refreshToken {
		// Not rotated; leave it out so the store keeps the existing ciphertext.
		creds.RefreshToken = ""
	}

	return creds, nil
}

// formatCredentials converts an [oauth2.Token] into stored credentials whose
// expiry has the safety margin already subtracted.
func formatCredentials(token *oauth2.Token) models.SpotifyCredentials {
	expiry := token.Expiry
	if expiry.IsZero() {
		expiry = time.Now().Add(time.Hour)
	}

	return models.SpotifyCredentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiry.Add(-expiryMargin).UTC(),
	}
}

// SpotifyClient performs Web API requests with a bound access token.
//
// Obtain one through [SpotifyAuth.ClientFor]; nothing else should hold raw tokens.
type SpotifyClient struct {
	accessToken string
	httpClient  *http.Client
	baseURL     string
}

var _ CatalogClient = (*SpotifyClient)(nil)

// NewSpotifyClient creates a client bound to accessToken.
// The HTTP client defaults to [http.DefaultClient].
func NewSpotifyClient(accessToken string, httpClient *http.Client) *SpotifyClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SpotifyClient{
		accessToken: accessToken,
		httpClient:  httpClient,
		baseURL:     spotifyBaseURL,
	}
}

// SetBaseURL overrides the API base URL. Used by tests.
func (c *SpotifyClient) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// doRequest performs an authenticated GET against the Spotify Web API.
func (c *SpotifyClient) doRequest(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: spotify returned status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// SavedAlbums retrieves one page of the user's saved albums.
func (c *SpotifyClient) SavedAlbums(ctx context.Context, limit, offset int) (*SpotifyPaginatedAlbums, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/me/albums?limit=%d&offset=%d", limit, offset)

	var response SpotifyPaginatedAlbums
	if err := c.doRequest(ctx, endpoint, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// UserProfile retrieves the current authenticated user's profile.
func (c *SpotifyClient) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := c.doRequest(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}
