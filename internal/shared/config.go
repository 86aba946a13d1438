package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// Secrets may be supplied or overridden through the environment; see [Config.ApplyEnv].
type Config struct {
	Spotify  SpotifyConfig  `toml:"spotify"`
	Security SecurityConfig `toml:"security"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Sync     SyncConfig     `toml:"sync"`
}

// SpotifyConfig contains the Spotify application credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// SecurityConfig contains secrets for sessions and token storage.
type SecurityConfig struct {
	// SigningSecret encrypts stored Spotify tokens and signs session cookies.
	// Must be exactly 32 bytes.
	SigningSecret string `toml:"signing_secret"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// SyncConfig tunes the library synchronization engine.
type SyncConfig struct {
	PageSize  int     `toml:"page_size"`  // Albums fetched per Spotify API page (max 50)
	RateLimit float64 `toml:"rate_limit"` // Page fetches per second
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Environment overrides are applied after parsing.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ApplyEnv()

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
//
// Environment overrides are applied, so a fully env-configured deployment needs no config file.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.ApplyEnv()
	return &config
}

// ApplyEnv overrides secret values from the environment when set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REDIRECT_URI"); v != "" {
		c.Spotify.RedirectURI = v
	}
	if v := os.Getenv("ALBUMRANKER_SIGNING_SECRET"); v != "" {
		c.Security.SigningSecret = v
	}
	if v := os.Getenv("ALBUMRANKER_DB_PATH"); v != "" {
		c.Database.Path = v
	}
}

// Validate checks that every value required at startup is present.
//
// A missing Spotify credential or a malformed signing secret is fatal;
// callers are expected to exit rather than continue degraded.
func (c *Config) Validate() error {
	if c.Spotify.ClientID == "" {
		return fmt.Errorf("%w: spotify client_id", ErrMissingConfig)
	}
	if c.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_secret", ErrMissingConfig)
	}
	if c.Spotify.RedirectURI == "" {
		return fmt.Errorf("%w: spotify redirect_uri", ErrMissingConfig)
	}
	if c.Security.SigningSecret == "" {
		return fmt.Errorf("%w: signing_secret", ErrMissingConfig)
	}
	if len(c.Security.SigningSecret) != 32 {
		return fmt.Errorf("%w: signing_secret must be 32 bytes, got %d", ErrInvalidConfig, len(c.Security.SigningSecret))
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
