package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// MinSecretLength is the shortest session secret accepted by [Config.Validate].
const MinSecretLength = 32

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Session     SessionConfig     `toml:"session"`
	Database    DatabaseConfig    `toml:"database"`
	Credentials CredentialsConfig `toml:"credentials"`
	Auth        AuthConfig        `toml:"auth"`
	Transfer    TransferConfig    `toml:"transfer"`
}

// Duration wraps [time.Duration] so it can be written as "15m" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: bad duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string   `toml:"host"`
	Port            int      `toml:"port"`
	BaseURL         string   `toml:"base_url"`
	LogLevel        string   `toml:"log_level"`
	UpstreamTimeout Duration `toml:"upstream_timeout"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	Secret     string   `toml:"secret"`
	CookieName string   `toml:"cookie_name"`
	Issuer     string   `toml:"issuer"`
	TTL        Duration `toml:"ttl"`
	Secure     bool     `toml:"secure"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// CredentialsConfig contains OAuth client credentials per provider.
type CredentialsConfig struct {
	Spotify OAuthClientConfig `toml:"spotify"`
	Google  OAuthClientConfig `toml:"google"`
}

// OAuthClientConfig contains one provider's OAuth2 client registration.
type OAuthClientConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// Configured reports whether both client id and secret are present.
func (c OAuthClientConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// AuthConfig controls credential lifecycle behaviour.
type AuthConfig struct {
	PersistRefreshed bool `toml:"persist_refreshed"`
}

// TransferConfig tunes the transfer pipeline and playlist classification.
type TransferConfig struct {
	WritesPerSecond     float64  `toml:"writes_per_second"`
	Burst               int      `toml:"burst"`
	ReverseMaxItems     int      `toml:"reverse_max_items"`
	ClassifyConcurrency int      `toml:"classify_concurrency"`
	ClassifySampleSize  int      `toml:"classify_sample_size"`
	ClassifyCacheTTL    Duration `toml:"classify_cache_ttl"`
}

// LoadConfig reads a TOML file and layers it over [DefaultConfig], then applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyEnv(os.LookupEnv)
	return config, nil
}

// LoadConfigOrDefault loads path when it exists. A missing file yields [DefaultConfig] with environment
// overrides applied.
func LoadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		config := DefaultConfig()
		config.applyEnv(os.LookupEnv)
		return config, nil
	}
	return LoadConfig(path)
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

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the settings `serve` cannot run without.
func (c *Config) Validate() error {
	if len(c.Session.Secret) < MinSecretLength {
		return fmt.Errorf("%w: session.secret must be at least %d bytes", ErrInvalidConfig, MinSecretLength)
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("%w: session.cookie_name is required", ErrInvalidConfig)
	}
	if !c.Credentials.Spotify.Configured() && !c.Credentials.Google.Configured() {
		return fmt.Errorf("%w: no provider credentials configured", ErrMissingCredentials)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	overrides := []struct {
		key    string
		target *string
	}{
		{"SONGBRIDGE_SESSION_SECRET", &c.Session.Secret},
		{"SPOTIFY_CLIENT_ID", &c.Credentials.Spotify.ClientID},
		{"SPOTIFY_CLIENT_SECRET", &c.Credentials.Spotify.ClientSecret},
		{"GOOGLE_CLIENT_ID", &c.Credentials.Google.ClientID},
		{"GOOGLE_CLIENT_SECRET", &c.Credentials.Google.ClientSecret},
	}

	for _, o := range overrides {
		if v, ok := lookup(o.key); ok && v != "" {
			*o.target = v
		}
	}
}
