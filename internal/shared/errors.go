package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Cipher errors
	ErrInvalidCipherKey = fmt.Errorf("cipher secret must be exactly 32 bytes")
	ErrDecryptFailed    = fmt.Errorf("decryption failed")

	// Account and session errors
	ErrNotAuthenticated   = fmt.Errorf("not authenticated")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUserExists         = fmt.Errorf("user already exists")
	ErrUserNotFound       = fmt.Errorf("user not found")

	// Spotify link lifecycle errors
	ErrNotLinked           = fmt.Errorf("spotify account not linked")
	ErrAlreadyLinked       = fmt.Errorf("spotify account already linked")
	ErrAuthorizationFailed = fmt.Errorf("spotify authorization failed")
	ErrRefreshFailed       = fmt.Errorf("token refresh failed")
	ErrTimeout             = fmt.Errorf("operation timed out")

	// Sync and catalog errors
	ErrSyncInProgress = fmt.Errorf("sync already in progress for this user")
	ErrAlbumNotFound  = fmt.Errorf("album not found")

	// API and input validation errors
	ErrAPIRequest      = fmt.Errorf("API request failed")
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
