// Package services implements the Spotify integration for the album ranking service.
//
// [SpotifyService] talks to the Spotify accounts service (authorization URL,
// code exchange, token refresh) and produces [SpotifyClient] instances bound
// to an access token for Web API calls. [SpotifyAuth] owns the credential
// lifecycle on top of the encrypted store: it completes authorization,
// refreshes expiring tokens, and is the only path from a user id to a usable
// API client.
package services
