package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/albumranker/internal/cipher"
	"github.com/desertthunder/albumranker/internal/models"
	"github.com/desertthunder/albumranker/internal/shared"
)

// CredentialRepository persists one encrypted Spotify credential row per user.
//
// Tokens are encrypted with the injected [cipher.Cipher] before they touch
// the database; nothing outside this repository sees the stored ciphertext.
type CredentialRepository struct {
	db     *sql.DB
	cipher *cipher.Cipher
}

// NewCredentialRepository creates a CredentialRepository encrypting with c.
func NewCredentialRepository(db *sql.DB, c *cipher.Cipher) *CredentialRepository {
	return &CredentialRepository{db: db, cipher: c}
}

// Save creates the credential row for a user after a successful authorization.
//
// Access and refresh tokens are encrypted independently, each with its own iv.
// Fails with [shared.ErrAlreadyLinked] when a row already exists; the caller
// must unlink first or use Update.
func (r *CredentialRepository) Save(userID string, creds models.SpotifyCredentials) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", shared.ErrInvalidInput)
	}

	accessToken, err := r.cipher.EncryptToken(creds.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	var refreshToken sql.NullString
	if creds.RefreshToken != "" {
		encrypted, err := r.cipher.EncryptToken(creds.RefreshToken)
		if err != nil {
			return fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
		refreshToken = sql.NullString{String: encrypted, Valid: true}
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO spotify_credentials (user_id, access_token, refresh_token, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, userID, accessToken, refreshToken, creds.ExpiresAt.UTC(), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user %s", shared.ErrAlreadyLinked, userID)
		}
		return fmt.Errorf("failed to insert credentials: %w", err)
	}

	return nil
}

// Update re-encrypts the refreshed access token and expiry in place.
//
// The refresh token is only replaced when the refreshed credentials carry one;
// Spotify usually does not rotate it. Returns (false, nil) when the user has
// no credential row, matching the no-op semantics of refreshing an unlinked
// account.
func (r *CredentialRepository) Update(userID string, creds models.SpotifyCredentials) (bool, error) {
	accessToken, err := r.cipher.EncryptToken(creds.AccessToken)
	if err != nil {
		return false, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	now := time.Now().UTC()

	var result sql.Result
	if creds.RefreshToken != "" {
		refreshToken, err := r.cipher.EncryptToken(creds.RefreshToken)
		if err != nil {
			return false, fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
		result, err = r.db.Exec(
			`UPDATE spotify_credentials SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = ? WHERE user_id = ?`,
			accessToken, refreshToken, creds.ExpiresAt.UTC(), now, userID,
		)
		if err != nil {
			return false, fmt.Errorf("failed to update credentials: %w", err)
		}
	} else {
		result, err = r.db.Exec(
			`UPDATE spotify_credentials SET access_token = ?, expires_at = ?, updated_at = ? WHERE user_id = ?`,
			accessToken, creds.ExpiresAt.UTC(), now, userID,
		)
		if err != nil {
			return false, fmt.Errorf("failed to update credentials: %w", err)
		}
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows > 0, nil
}

// Get retrieves and decrypts the user's credentials.
//
// Returns (nil, nil) when the user has never linked a Spotify account; this
// nil is how the rest of the application answers "is the integration linked".
func (r *CredentialRepository) Get(userID string) (*models.SpotifyCredentials, error) {
	query := `
		SELECT access_token, refresh_token, expires_at
		FROM spotify_credentials
		WHERE user_id = ?
	`

	var (
		accessToken  string
		refreshToken sql.NullString
		expiresAt    time.Time
	)

	err := r.db.QueryRow(query, userID).Scan(&accessToken, &refreshToken, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}

	creds := &models.SpotifyCredentials{ExpiresAt: expiresAt.UTC()}

	creds.AccessToken, err = r.cipher.DecryptToken(accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}

	if refreshToken.Valid {
		creds.RefreshToken, err = r.cipher.DecryptToken(refreshToken.String)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
		}
	}

	return creds, nil
}

// Delete removes the credential row and every album synced through it.
//
// Unlinking discards all derived catalog data; both deletes happen in one
// transaction so a failed unlink never leaves a half-removed account.
func (r *CredentialRepository) Delete(userID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`DELETE FROM spotify_credentials WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: user %s", shared.ErrNotLinked, userID)
	}

	if _, err := tx.Exec(`DELETE FROM albums WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete synced albums: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit unlink: %w", err)
	}

	return nil
}
