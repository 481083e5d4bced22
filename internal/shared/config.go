package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	API         APIConfig         `toml:"api"`
	Storage     StorageConfig     `toml:"storage"`
	Queue       QueueConfig       `toml:"queue"`
	Tokens      TokensConfig      `toml:"tokens"`
	Database    DatabaseConfig    `toml:"database"`
	Enrich      EnrichConfig      `toml:"enrich"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains client-credentials grant settings.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// APIConfig describes the catalog endpoints and request pacing.
type APIConfig struct {
	BaseURL        string  `toml:"base_url"`
	TokenURL       string  `toml:"token_url"`
	Fields         string  `toml:"fields"`
	RateLimit      float64 `toml:"rate_limit"` // requests per second, 0 disables pacing
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// StorageConfig selects the object storage backend.
type StorageConfig struct {
	Backend  string `toml:"backend"` // s3 or local
	Bucket   string `toml:"bucket"`
	Region   string `toml:"region"`
	LocalDir string `toml:"local_dir"`
	Format   string `toml:"format"` // csv or json
}

// QueueConfig contains Redis work queue settings.
type QueueConfig struct {
	RedisAddr    string `toml:"redis_addr"`
	Name         string `toml:"name"`
	LeaseSeconds int    `toml:"lease_seconds"`
	WaitSeconds  int    `toml:"wait_seconds"`
	Batch        int    `toml:"batch"`
}

// TokensConfig selects where the access token lives.
type TokensConfig struct {
	Backend string `toml:"backend"` // memory or redis
	Scope   string `toml:"scope"`
}

// DatabaseConfig contains run ledger connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// EnrichConfig toggles the artist genre/follower join.
type EnrichConfig struct {
	Artists bool `toml:"artists"`
}

// LogConfig sets the logger level (debug, info, warn, error).
type LogConfig struct {
	Level string `toml:"level"`
}

// Timeout returns the per-run deadline.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Lease returns the work queue lease duration.
func (c QueueConfig) Lease() time.Duration {
	return time.Duration(c.LeaseSeconds) * time.Second
}

// Wait returns how long a blocking lease waits for an item.
func (c QueueConfig) Wait() time.Duration {
	return time.Duration(c.WaitSeconds) * time.Second
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
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

// ApplyEnv overrides secrets and deployment settings from the environment.
//
// Recognized variables: SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET, AWS_BUCKET, AWS_REGION, REDIS_ADDRESS.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Credentials.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	set(&c.Credentials.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	set(&c.Storage.Bucket, "AWS_BUCKET")
	set(&c.Storage.Region, "AWS_REGION")
	set(&c.Queue.RedisAddr, "REDIS_ADDRESS")
}

// Validate checks that the settings needed to reach the catalog are present.
func (c *Config) Validate() error {
	if c.Credentials.Spotify.ClientID == "" || c.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret are required", ErrMissingCredentials)
	}
	switch c.Storage.Backend {
	case "s3", "local":
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	switch c.Storage.Format {
	case "csv", "json":
	default:
		return fmt.Errorf("%w: unknown output format %q", ErrInvalidConfig, c.Storage.Format)
	}
	switch c.Tokens.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("%w: unknown token backend %q", ErrInvalidConfig, c.Tokens.Backend)
	}
	return nil
}
