package main

import (
	"context"

	"github.com/desertthunder/albumranker/internal/models"
	"github.com/urfave/cli/v3"
)

type albumRow struct {
	SpotifyID   string `json:"spotify_id"`
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	ReleaseDate string `json:"release_date"`
	Rank        *int   `json:"rank"`
	Hidden      bool   `json:"hidden"`
}

func toAlbumRow(album *models.RankedAlbum) albumRow {
	return albumRow{
		SpotifyID:   album.SpotifyID(),
		Name:        album.Name(),
		Artist:      album.Artist(),
		ReleaseDate: album.ReleaseDate().Format("2006-01-02"),
		Rank:        album.Rank(),
		Hidden:      album.Hidden(),
	}
}

// AlbumsList prints the user's albums for a release year in ranked order.
func (r *Runner) AlbumsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	user, err := r.resolveUser(cmd)
	if err != nil {
		return err
	}

	year := cmd.String("year")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	albums, err := r.albums.ListByYear(user.ID(), year)
	if err != nil {
		return err
	}

	if useJSON {
		rows := make([]albumRow, 0, len(albums))
		for _, album := range albums {
			rows = append(rows, toAlbumRow(album))
		}
		return r.writeJSON(rows, pretty)
	}

	if len(albums) == 0 {
		r.writePlain("No albums synced for %s\n", year)
		return nil
	}

	r.writePlain("Albums of %s for %s:\n\n", year, user.Email())
	position := 0
	for _, album := range albums {
		if album.Hidden() {
			r.writePlain("   %s - %s (hidden)\n", album.Artist(), album.Name())
			continue
		}
		position++
		r.writePlain("%d. %s - %s\n", position, album.Artist(), album.Name())
		r.writePlain("   Released: %s\n", album.ReleaseDate().Format("2006-01-02"))
	}

	return nil
}

// AlbumsYears prints every rankable release year, newest first. The current
// year is listed even when nothing from it has been synced yet.
func (r *Runner) AlbumsYears(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	user, err := r.resolveUser(cmd)
	if err != nil {
		return err
	}

	years, err := r.albums.YearsForRanking(user.ID())
	if err != nil {
		return err
	}

	for _, year := range years {
		count := 0
		if albums, err := r.albums.ListByYear(user.ID(), year); err == nil {
			count = len(albums)
		}
		r.writePlain("%s (%d albums)\n", year, count)
	}

	return nil
}
