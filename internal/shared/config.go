package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Lyrics      LyricsConfig      `toml:"lyrics"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Overlay     OverlayConfig     `toml:"overlay"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and the cached OAuth token.
//
// An empty ClientSecret selects the PKCE flow.
type SpotifyConfig struct {
	ClientID     string    `toml:"client_id"`
	ClientSecret string    `toml:"client_secret"`
	RedirectURI  string    `toml:"redirect_uri"`
	AccessToken  string    `toml:"access_token,omitempty"`
	RefreshToken string    `toml:"refresh_token,omitempty"`
	TokenType    string    `toml:"token_type,omitempty"`
	Expiry       time.Time `toml:"expiry,omitempty"`
}

// LyricsConfig contains the lyrics provider settings.
type LyricsConfig struct {
	BaseURL   string   `toml:"base_url"`
	RateLimit float64  `toml:"rate_limit"` // requests per second
	Timeout   Duration `toml:"timeout"`
	UserAgent string   `toml:"user_agent"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains the OAuth callback server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// OverlayConfig controls polling cadence and overlay appearance.
type OverlayConfig struct {
	Source          string   `toml:"source"` // spotify or mpris
	Player          string   `toml:"player,omitempty"`
	Dock            string   `toml:"dock"`
	PollInterval    Duration `toml:"poll_interval"`
	RefreshInterval Duration `toml:"refresh_interval"`
	Fade            Duration `toml:"fade"`
	SignalThreshold int      `toml:"signal_threshold"`
	Offset          Duration `toml:"offset"`
	Foreground      string   `toml:"foreground"`
	Background      string   `toml:"background"`
	Next            string   `toml:"next"`
	Status          string   `toml:"status"`
	LogPath         string   `toml:"log_path"`
}

// Duration wraps [time.Duration] so it can be written as "500ms" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Map returns the credentials in the map form accepted by the services constructors.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// Configured reports whether a real client id is present (the example placeholder does not count).
func (s SpotifyConfig) Configured() bool {
	return s.ClientID != "" && s.ClientID != "your_spotify_client_id"
}

// Token returns the cached [oauth2.Token], or nil when none was saved.
func (s SpotifyConfig) Token() *oauth2.Token {
	if s.AccessToken == "" && s.RefreshToken == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		Expiry:       s.Expiry,
	}
}

// Update stores token in the config. A refreshed token without a refresh token keeps the previous one.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidCredentials)
	}
	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	s.TokenType = token.TokenType
	s.Expiry = token.Expiry
	return nil
}

// Validate checks the overlay settings, filling zero values from the defaults.
func (c *Config) Validate() error {
	def := DefaultConfig()
	o := &c.Overlay
	if o.PollInterval.Duration <= 0 {
		o.PollInterval = def.Overlay.PollInterval
	}
	if o.PollInterval.Duration >= 5*time.Second {
		return fmt.Errorf("%w: overlay.poll_interval %v is too slow", ErrInvalidConfig, o.PollInterval)
	}
	if o.RefreshInterval.Duration <= 0 {
		o.RefreshInterval = def.Overlay.RefreshInterval
	}
	if o.Fade.Duration < 0 {
		return fmt.Errorf("%w: overlay.fade must not be negative", ErrInvalidConfig)
	}
	if o.SignalThreshold <= 0 {
		o.SignalThreshold = def.Overlay.SignalThreshold
	}
	switch o.Source {
	case "":
		o.Source = def.Overlay.Source
	case "spotify", "mpris":
	default:
		return fmt.Errorf("%w: unknown overlay.source %q", ErrInvalidConfig, o.Source)
	}
	switch o.Dock {
	case "":
		o.Dock = def.Overlay.Dock
	case "bottom", "top", "center":
	default:
		return fmt.Errorf("%w: unknown overlay.dock %q", ErrInvalidConfig, o.Dock)
	}
	if c.Lyrics.BaseURL == "" {
		c.Lyrics.BaseURL = def.Lyrics.BaseURL
	}
	if c.Lyrics.Timeout.Duration <= 0 {
		c.Lyrics.Timeout = def.Lyrics.Timeout
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveConfig writes config to path as TOML with owner-only permissions, since it holds tokens.
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

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ResolveConfig loads the config at path when it exists and falls back to the defaults otherwise.
// Environment overrides are applied in both cases.
func ResolveConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	ApplyEnv(config)
	return config, nil
}

// LoadEnv loads .env files into the process environment. Missing files are ignored.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides config values from LYRX_* environment variables.
func ApplyEnv(config *Config) {
	for key, dst := range map[string]*string{
		"LYRX_SPOTIFY_CLIENT_ID":     &config.Credentials.Spotify.ClientID,
		"LYRX_SPOTIFY_CLIENT_SECRET": &config.Credentials.Spotify.ClientSecret,
		"LYRX_SPOTIFY_REDIRECT_URI":  &config.Credentials.Spotify.RedirectURI,
		"LYRX_LRCLIB_URL":            &config.Lyrics.BaseURL,
		"LYRX_DATABASE_PATH":         &config.Database.Path,
	} {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
}
