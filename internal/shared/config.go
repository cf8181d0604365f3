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
	Redis       RedisConfig       `toml:"redis"`
	Server      ServerConfig      `toml:"server"`
	Session     SessionConfig     `toml:"session"`
	Gate        GateConfig        `toml:"gate"`
	Dashboard   DashboardConfig   `toml:"dashboard"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Google  GoogleConfig  `toml:"google"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// GoogleConfig contains the OAuth client registered with Google.
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// YouTubeConfig contains YouTube Data API settings.
type YouTubeConfig struct {
	APIKey    string  `toml:"api_key"`
	BaseURL   string  `toml:"base_url"`
	PageSize  int     `toml:"page_size"`
	RateLimit float64 `toml:"rate_limit"` // requests per second
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RedisConfig contains connection settings for the redis session backend.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	BaseURL     string `toml:"base_url"`
	MetricsAddr string `toml:"metrics_addr"`
}

// SessionConfig contains session cookie and backend settings.
type SessionConfig struct {
	Backend    string `toml:"backend"` // sqlite or redis
	Secret     string `toml:"secret"`
	CookieName string `toml:"cookie_name"`
	TTL        string `toml:"ttl"`
	Secure     bool   `toml:"secure"`
}

// GateConfig contains the fixed paths used by the access gate.
type GateConfig struct {
	LoginPath    string   `toml:"login_path"`
	HomePath     string   `toml:"home_path"`
	CallbackPath string   `toml:"callback_path"`
	Public       []string `toml:"public"`
	Excluded     []string `toml:"excluded"`
}

// DashboardConfig contains dashboard refresh settings.
type DashboardConfig struct {
	RefreshInterval string `toml:"refresh_interval"`
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SessionTTL parses [SessionConfig.TTL], falling back to 7 days.
func (c *Config) SessionTTL() time.Duration {
	return parseDuration(c.Session.TTL, 7*24*time.Hour)
}

// RefreshInterval parses [DashboardConfig.RefreshInterval], falling back to 30 minutes.
func (c *Config) RefreshInterval() time.Duration {
	return parseDuration(c.Dashboard.RefreshInterval, 30*time.Minute)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Validate checks the settings needed to serve the web dashboard.
func (c *Config) Validate() error {
	var problems []string

	if c.Credentials.Google.ClientID == "" || c.Credentials.Google.ClientSecret == "" {
		problems = append(problems, "credentials.google client_id and client_secret are required")
	}
	if len(c.Session.Secret) < 32 {
		problems = append(problems, "session.secret must be at least 32 characters")
	}
	switch c.Session.Backend {
	case "", "sqlite":
	case "redis":
		if c.Redis.Addr == "" {
			problems = append(problems, "redis.addr is required for the redis session backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown session.backend %q", c.Session.Backend))
	}
	if c.Session.TTL != "" {
		if _, err := time.ParseDuration(c.Session.TTL); err != nil {
			problems = append(problems, fmt.Sprintf("session.ttl: %v", err))
		}
	}
	for _, p := range []string{c.Gate.LoginPath, c.Gate.HomePath, c.Gate.CallbackPath} {
		if !strings.HasPrefix(p, "/") {
			problems = append(problems, fmt.Sprintf("gate path %q must start with /", p))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys absent from the file keep the values of [DefaultConfig].
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

// LoadOrDefault loads the config at path when it exists and otherwise returns [DefaultConfig].
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}
