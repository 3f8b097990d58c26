package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Client  ClientConfig  `toml:"client"`
	Session SessionConfig `toml:"session"`
	Cache   CacheConfig   `toml:"cache"`
	Server  ServerConfig  `toml:"server"`
}

// ClientConfig contains backend connection and UI timing settings.
type ClientConfig struct {
	BaseURL         string   `toml:"base_url"`
	PageSize        int      `toml:"page_size"`
	ScrollThreshold int      `toml:"scroll_threshold"`
	ScrollDebounce  Duration `toml:"scroll_debounce"`
	CompletionHold  Duration `toml:"completion_hold"`
	RequestTimeout  Duration `toml:"request_timeout"`
	OpenBrowser     bool     `toml:"open_browser"`
}

// SessionConfig holds the session token issued by the backend after login.
type SessionConfig struct {
	AccessToken string    `toml:"access_token"`
	TokenType   string    `toml:"token_type"`
	Expiry      time.Time `toml:"expiry,omitempty"`
}

// CacheConfig selects the identity cache backend.
type CacheConfig struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
}

// ServerConfig contains the local login callback listener settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Duration is a [time.Duration] that reads and writes TOML strings such as "200ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Token returns the stored session as an [oauth2.Token], or nil when no session is stored.
func (s SessionConfig) Token() *oauth2.Token {
	if s.AccessToken == "" {
		return nil
	}
	return &oauth2.Token{AccessToken: s.AccessToken, TokenType: s.TokenType, Expiry: s.Expiry}
}

// Update stores the given token, or clears the session when token is nil.
func (s *SessionConfig) Update(token *oauth2.Token) error {
	if token == nil {
		*s = SessionConfig{TokenType: "Bearer"}
		return nil
	}
	if token.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", ErrInvalidInput)
	}
	s.AccessToken = token.AccessToken
	s.TokenType = token.TokenType
	if s.TokenType == "" {
		s.TokenType = "Bearer"
	}
	s.Expiry = token.Expiry
	return nil
}

// CallbackURL returns the redirect URI of the local login callback listener.
func (s ServerConfig) CallbackURL() string {
	return fmt.Sprintf("http://%s:%d/callback", s.Host, s.Port)
}

// Addr returns host:port for the callback listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Validate checks the fields the client cannot run without.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Client.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: client.base_url %q is not an absolute URL", ErrInvalidConfig, c.Client.BaseURL)
	}
	if c.Client.PageSize <= 0 {
		return fmt.Errorf("%w: client.page_size must be positive", ErrInvalidConfig)
	}
	switch c.Cache.Driver {
	case "sqlite", "bolt", "memory":
	default:
		return fmt.Errorf("%w: unknown cache driver %q", ErrInvalidConfig, c.Cache.Driver)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes config to path as TOML.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
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
