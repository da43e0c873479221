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
	Database    DatabaseConfig    `toml:"database"`
	Store       StoreConfig       `toml:"store"`
	Redis       RedisConfig       `toml:"redis"`
	Server      ServerConfig      `toml:"server"`
	HTTP        HTTPConfig        `toml:"http"`
	Matcher     MatcherConfig     `toml:"matcher"`
	Auth        AuthConfig        `toml:"auth"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// SpotifyConfig contains Spotify client-credentials settings.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	TokenURL     string `toml:"token_url"`
	APIBaseURL   string `toml:"api_base_url"`
	MaxPages     int    `toml:"max_pages"`
}

// YouTubeConfig contains the Data API key and the Google OAuth2 client used for writes.
type YouTubeConfig struct {
	APIKey       string `toml:"api_key"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AuthURL      string `toml:"auth_url"`
	TokenURL     string `toml:"token_url"`
	APIBaseURL   string `toml:"api_base_url"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// StoreConfig selects the grant store backend.
type StoreConfig struct {
	Driver string `toml:"driver"`
}

// RedisConfig contains connection settings for the redis grant store.
type RedisConfig struct {
	Addr      string `toml:"addr"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	KeyPrefix string `toml:"key_prefix"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	UIURL         string `toml:"ui_url"`
	SessionCookie string `toml:"session_cookie"`
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// HTTPConfig contains settings for outbound HTTP calls.
type HTTPConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Timeout returns the per-call timeout, defaulting to five seconds.
func (h HTTPConfig) Timeout() time.Duration {
	if h.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// MatcherConfig bounds the search fan-out.
type MatcherConfig struct {
	Workers   int     `toml:"workers"`
	RateLimit float64 `toml:"rate_limit"`
}

// AuthConfig contains OAuth session settings.
type AuthConfig struct {
	RefreshAttempts int `toml:"refresh_attempts"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// envOverrides maps environment variables onto config fields.
var envOverrides = []struct {
	name  string
	field func(*Config) *string
}{
	{"SPOTIFY_CLIENT_ID", func(c *Config) *string { return &c.Credentials.Spotify.ClientID }},
	{"SPOTIFY_CLIENT_SECRET", func(c *Config) *string { return &c.Credentials.Spotify.ClientSecret }},
	{"YOUTUBE_API_KEY", func(c *Config) *string { return &c.Credentials.YouTube.APIKey }},
	{"GOOGLE_CLIENT_ID", func(c *Config) *string { return &c.Credentials.YouTube.ClientID }},
	{"GOOGLE_CLIENT_SECRET", func(c *Config) *string { return &c.Credentials.YouTube.ClientSecret }},
	{"GOOGLE_REDIRECT_URI", func(c *Config) *string { return &c.Credentials.YouTube.RedirectURI }},
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults; environment variables win over both.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ApplyEnv()
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

// ApplyEnv overrides credentials with any of the supported environment variables that are set.
func (c *Config) ApplyEnv() {
	for _, o := range envOverrides {
		if v, ok := os.LookupEnv(o.name); ok && v != "" {
			*o.field(c) = v
		}
	}
}

// Validate reports the credentials that are missing or still hold template placeholders.
func (c *Config) Validate() error {
	var missing []string
	check := func(name, value string) {
		if value == "" || strings.HasPrefix(value, "your_") {
			missing = append(missing, name)
		}
	}

	check("credentials.spotify.client_id", c.Credentials.Spotify.ClientID)
	check("credentials.spotify.client_secret", c.Credentials.Spotify.ClientSecret)
	check("credentials.youtube.api_key", c.Credentials.YouTube.APIKey)
	check("credentials.youtube.client_id", c.Credentials.YouTube.ClientID)
	check("credentials.youtube.client_secret", c.Credentials.YouTube.ClientSecret)
	check("credentials.youtube.redirect_uri", c.Credentials.YouTube.RedirectURI)

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}

	switch c.Store.Driver {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalidConfig, c.Store.Driver)
	}

	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: config file already exists at %s", ErrInvalidArgument, path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
