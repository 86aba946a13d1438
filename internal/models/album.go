package models

import (
	"fmt"
	"strconv"
	"time"
)

// Album is the metadata for one saved album as fetched from Spotify.
type Album struct {
	SpotifyID   string
	Name        string
	Artist      string // all artist names joined with ", "
	ImageURL    string
	SpotifyURI  string
	ReleaseDate time.Time
}

// Year returns the release date's calendar year as a string, the partition
// key for ranked lists.
func (a Album) Year() string {
	return strconv.Itoa(a.ReleaseDate.Year())
}

// RankedAlbum wraps [Album] with the user-assigned ordering state persisted locally.
//
// Sync overwrites the wrapped metadata but never touches rank or hidden;
// those change only through explicit ranking saves.
type RankedAlbum struct {
	id        string
	sequence  int
	userID    string
	album     Album
	rank      *int // nil until the album has been ranked or appended by sync
	hidden    bool
	createdAt time.Time
	updatedAt time.Time
}

// NewRankedAlbum creates a RankedAlbum owned by userID wrapping the fetched metadata.
func NewRankedAlbum(sequence int, userID string, album Album) *RankedAlbum {
	now := time.Now().UTC()
	return &RankedAlbum{
		sequence:  sequence,
		userID:    userID,
		album:     album,
		createdAt: now,
		updatedAt: now,
	}
}

func (r *RankedAlbum) ID() string             { return r.id }
func (r *RankedAlbum) Sequence() int          { return r.sequence }
func (r *RankedAlbum) UserID() string         { return r.userID }
func (r *RankedAlbum) Album() Album           { return r.album }
func (r *RankedAlbum) SpotifyID() string      { return r.album.SpotifyID }
func (r *RankedAlbum) Name() string           { return r.album.Name }
func (r *RankedAlbum) Artist() string         { return r.album.Artist }
func (r *RankedAlbum) ImageURL() string       { return r.album.ImageURL }
func (r *RankedAlbum) SpotifyURI() string     { return r.album.SpotifyURI }
func (r *RankedAlbum) ReleaseDate() time.Time { return r.album.ReleaseDate }
func (r *RankedAlbum) Year() string           { return r.album.Year() }
func (r *RankedAlbum) Rank() *int             { return r.rank }
func (r *RankedAlbum) Hidden() bool           { return r.hidden }
func (r *RankedAlbum) CreatedAt() time.Time   { return r.createdAt }
func (r *RankedAlbum) UpdatedAt() time.Time   { return r.updatedAt }

func (r *RankedAlbum) SetID(id string)          { r.id = id }
func (r *RankedAlbum) SetUpdatedAt(t time.Time) { r.updatedAt = t }
func (r *RankedAlbum) SetCreatedAt(t time.Time) { r.createdAt = t }
func (r *RankedAlbum) SetAlbum(album Album)     { r.album = album }
func (r *RankedAlbum) SetHidden(hidden bool)    { r.hidden = hidden }

// SetRank assigns a numeric rank.
func (r *RankedAlbum) SetRank(rank int) {
	r.rank = &rank
}

// ClearRank marks the album as unranked.
func (r *RankedAlbum) ClearRank() {
	r.rank = nil
}

// Validate checks that the album carries its owning and external keys.
func (r *RankedAlbum) Validate() error {
	if r.userID == "" {
		return fmt.Errorf("missing user id")
	}
	if r.album.SpotifyID == "" {
		return fmt.Errorf("missing spotify id")
	}
	if r.album.Name == "" {
		return fmt.Errorf("missing album name")
	}
	if r.album.ReleaseDate.IsZero() {
		return fmt.Errorf("missing release date")
	}
	return nil
}
