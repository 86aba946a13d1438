package repositories

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/albumranker/internal/models"
	"github.com/desertthunder/albumranker/internal/shared"
)

// AlbumRepository persists synced albums with their user-assigned ranking state.
type AlbumRepository struct {
	db *sql.DB
}

// RankEntry is one position in a caller-supplied ranking order.
type RankEntry struct {
	SpotifyID string
	Hidden    bool
}

// NewAlbumRepository creates a new AlbumRepository with the given database connection
func NewAlbumRepository(db *sql.DB) *AlbumRepository {
	return &AlbumRepository{db: db}
}

// Create inserts a new ranked album with generated ID and sequence
func (r *AlbumRepository) Create(album *models.RankedAlbum) error {
	sequence, err := NextSequence(r.db, "albums")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	album.SetID(id)

	if err := album.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO albums (id, sequence, user_id, spotify_id, name, artist, image_url, spotify_uri, release_date, year, rank, hidden, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var rank sql.NullInt64
	if album.Rank() != nil {
		rank = sql.NullInt64{Int64: int64(*album.Rank()), Valid: true}
	}

	_, err = r.db.Exec(query,
		id,
		sequence,
		album.UserID(),
		album.SpotifyID(),
		album.Name(),
		album.Artist(),
		album.ImageURL(),
		album.SpotifyURI(),
		album.ReleaseDate().UTC(),
		album.Year(),
		rank,
		album.Hidden(),
		album.CreatedAt(),
		album.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert album: %w", err)
	}

	return nil
}

// GetBySpotifyID retrieves a user's album by its external id.
//
// Returns (nil, nil) when the album has not been synced for this user.
func (r *AlbumRepository) GetBySpotifyID(userID, spotifyID string) (*models.RankedAlbum, error) {
	query := `
		SELECT id, sequence, user_id, spotify_id, name, artist, image_url, spotify_uri, release_date, rank, hidden, created_at, updated_at
		FROM albums
		WHERE user_id = ? AND spotify_id = ?
	`

	album, err := r.scanOne(r.db.QueryRow(query, userID, spotifyID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return album, err
}

// Upsert reconciles one fetched album against local storage.
//
// Absent albums are created with rank = defaultRank and hidden = false.
// Existing albums get fresh metadata only; rank and hidden are never touched
// here, which is what makes re-sync safe to run repeatedly.
func (r *AlbumRepository) Upsert(userID string, album models.Album, defaultRank int) error {
	existing, err := r.GetBySpotifyID(userID, album.SpotifyID)
	if err != nil {
		return err
	}

	if existing == nil {
		ranked := models.NewRankedAlbum(0, userID, album)
		ranked.SetRank(defaultRank)
		if err := r.Create(ranked); err != nil {
			if isUniqueViolation(err) {
				// Raced with a concurrent sync; treat as the update path next time.
				return nil
			}
			return err
		}
		return nil
	}

	now := time.Now().UTC()

	query := `
		UPDATE albums
		SET name = ?, artist = ?, image_url = ?, spotify_uri = ?, release_date = ?, year = ?, updated_at = ?
		WHERE user_id = ? AND spotify_id = ?
	`

	_, err = r.db.Exec(query,
		album.Name,
		album.Artist,
		album.ImageURL,
		album.SpotifyURI,
		album.ReleaseDate.UTC(),
		album.Year(),
		now,
		userID,
		album.SpotifyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update album: %w", err)
	}

	return nil
}

// ListByYear retrieves a user's albums for one release year in ranked order.
//
// Hidden albums always sort after visible ones regardless of numeric rank;
// unranked albums come last within each group, ties break on insertion order.
func (r *AlbumRepository) ListByYear(userID, year string) ([]*models.RankedAlbum, error) {
	query := `
		SELECT id, sequence, user_id, spotify_id, name, artist, image_url, spotify_uri, release_date, rank, hidden, created_at, updated_at
		FROM albums
		WHERE user_id = ? AND year = ?
		ORDER BY hidden ASC, rank IS NULL ASC, rank ASC, sequence ASC
	`

	rows, err := r.db.Query(query, userID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer rows.Close()

	var albums []*models.RankedAlbum
	for rows.Next() {
		album, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, album)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return albums, nil
}

// Years returns the distinct release years of a user's synced albums, newest first.
func (r *AlbumRepository) Years(userID string) ([]string, error) {
	query := `
		SELECT DISTINCT year
		FROM albums
		WHERE user_id = ?
		ORDER BY year DESC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query years: %w", err)
	}
	defer rows.Close()

	var years []string
	for rows.Next() {
		var year string
		if err := rows.Scan(&year); err != nil {
			return nil, fmt.Errorf("failed to scan year: %w", err)
		}
		years = append(years, year)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return years, nil
}

// YearsForRanking returns the years a user can rank: every release year with
// synced albums plus the current calendar year, so a new year is selectable
// before anything from it has been synced.
func (r *AlbumRepository) YearsForRanking(userID string) ([]string, error) {
	years, err := r.Years(userID)
	if err != nil {
		return nil, err
	}

	current := strconv.Itoa(time.Now().Year())
	for _, year := range years {
		if year == current {
			return years, nil
		}
	}

	return append([]string{current}, years...), nil
}

// Count returns the number of albums synced for a user.
func (r *AlbumRepository) Count(userID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM albums WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count albums: %w", err)
	}
	return count, nil
}

// SaveRanking writes the caller-supplied order as each album's rank,
// along with its hidden flag. Position in the slice is the rank.
//
// Ranking never creates albums: every entry must already exist from a prior
// sync, and a missing one fails the whole save so a partial order is never
// persisted.
func (r *AlbumRepository) SaveRanking(userID string, ordered []RankEntry) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	query := `
		UPDATE albums
		SET rank = ?, hidden = ?, updated_at = ?
		WHERE user_id = ? AND spotify_id = ?
	`

	for i, entry := range ordered {
		result, err := tx.Exec(query, i, entry.Hidden, now, userID, entry.SpotifyID)
		if err != nil {
			return fmt.Errorf("failed to update rank: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("%w: %s", shared.ErrAlbumNotFound, entry.SpotifyID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ranking: %w", err)
	}

	return nil
}

// scanOne scans a single row into a [models.RankedAlbum]
func (r *AlbumRepository) scanOne(row *sql.Row) (*models.RankedAlbum, error) {
	var (
		id          string
		sequence    int
		userID      string
		spotifyID   string
		name        string
		artist      string
		imageURL    string
		spotifyURI  string
		releaseDate time.Time
		rank        sql.NullInt64
		hidden      bool
		createdAt   time.Time
		updatedAt   time.Time
	)

	err := row.Scan(&id, &sequence, &userID, &spotifyID, &name, &artist, &imageURL, &spotifyURI, &releaseDate, &rank, &hidden, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	return buildRankedAlbum(id, sequence, userID, spotifyID, name, artist, imageURL, spotifyURI, releaseDate, rank, hidden, createdAt, updatedAt), nil
}

// scanRow scans a row from [sql.Rows] into a [models.RankedAlbum]
func (r *AlbumRepository) scanRow(rows *sql.Rows) (*models.RankedAlbum, error) {
	var (
		id          string
		sequence    int
		userID      string
		spotifyID   string
		name        string
		artist      string
		imageURL    string
		spotifyURI  string
		releaseDate time.Time
		rank        sql.NullInt64
		hidden      bool
		createdAt   time.Time
		updatedAt   time.Time
	)

	if err := rows.Scan(&id, &sequence, &userID, &spotifyID, &name, &artist, &imageURL, &spotifyURI, &releaseDate, &rank, &hidden, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan album: %w", err)
	}

	return buildRankedAlbum(id, sequence, userID, spotifyID, name, artist, imageURL, spotifyURI, releaseDate, rank, hidden, createdAt, updatedAt), nil
}

func buildRankedAlbum(id string, sequence int, userID, spotifyID, name, artist, imageURL, spotifyURI string, releaseDate time.Time, rank sql.NullInt64, hidden bool, createdAt, updatedAt time.Time) *models.RankedAlbum {
	dto := models.Album{
		SpotifyID:   spotifyID,
		Name:        name,
		Artist:      artist,
		ImageURL:    imageURL,
		SpotifyURI:  spotifyURI,
		ReleaseDate: releaseDate.UTC(),
	}

	album := models.NewRankedAlbum(sequence, userID, dto)
	album.SetID(id)
	album.SetCreatedAt(createdAt)
	album.SetUpdatedAt(updatedAt)
	album.SetHidden(hidden)
	if rank.Valid {
		album.SetRank(int(rank.Int64))
	}

	return album
}
