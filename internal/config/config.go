package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes environment overrides, e.g. COMPANIES_NOTES_ENDPOINT
const EnvPrefix = "COMPANIES"

// Config holds the application configuration
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Notes    NotesConfig    `toml:"notes"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
	UI       UIConfig       `toml:"ui"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// NotesConfig selects where notes updates are sent
type NotesConfig struct {
	// Backend is "http", "local" or empty to pick the first usable one
	Backend  string   `toml:"backend"`
	Endpoint string   `toml:"endpoint"`
	Timeout  Duration `toml:"timeout"`
}

// ServerConfig configures companies-server
type ServerConfig struct {
	Addr      string `toml:"addr"`
	RateLimit int    `toml:"rate_limit" split_words:"true"`
}

// LogConfig configures slog output
type LogConfig struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Path   string `toml:"path"`
}

// UIConfig holds terminal UI settings
type UIConfig struct {
	NotificationDuration Duration `toml:"notification_duration" split_words:"true"`
}

// Duration is a time.Duration written as "3s" in files and the environment
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText formats the duration
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(homeDir, ".config", "companies", "companies.db"),
		},
		Notes: NotesConfig{
			Timeout: Duration{10 * time.Second},
		},
		Server: ServerConfig{
			Addr:      ":8080",
			RateLimit: 30,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		UI: UIConfig{
			NotificationDuration: Duration{3 * time.Second},
		},
	}
}

// Path returns the standard config file location
func Path() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home dir: %w", err)
	}
	return filepath.Join(homeDir, ".config", "companies-tui", "config.toml"), nil
}

// Load loads configuration from the standard location
func Load() (*Config, error) {
	configPath, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom loads configuration from a specific path, then applies
// environment overrides
func LoadFrom(configPath string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("checking config file: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Log.Path = expandPath(cfg.Log.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail later
func (c *Config) Validate() error {
	switch c.Notes.Backend {
	case "", "http", "local", "noop":
	default:
		return fmt.Errorf("unknown notes backend %q", c.Notes.Backend)
	}
	if c.Notes.Backend == "http" && c.Notes.Endpoint == "" {
		return fmt.Errorf("notes backend http needs notes.endpoint")
	}
	if c.UI.NotificationDuration.Duration <= 0 {
		return fmt.Errorf("ui.notification_duration must be positive")
	}
	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Save saves the configuration to the standard location
func (c *Config) Save() error {
	configPath, err := Path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return c.SaveTo(configPath)
}

// SaveTo saves the configuration to a specific path
func (c *Config) SaveTo(configPath string) error {
	f, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	return nil
}
