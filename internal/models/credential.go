package models

import "time"

// SpotifyCredentials is the decrypted token set for one user's Spotify link.
//
// ExpiresAt already includes the safety margin subtracted at creation time,
// so "now >= ExpiresAt" always means "must refresh".
type SpotifyCredentials struct {
	AccessToken  string
	RefreshToken string // empty when Spotify never issued one
	ExpiresAt    time.Time
}

// Expired reports whether the access token must be refreshed before use.
func (c SpotifyCredentials) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
