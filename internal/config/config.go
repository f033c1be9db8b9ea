package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Catalog  Catalog  `yaml:"catalog"`
	Geocoder Geocoder `yaml:"geocoder"`
	Cache    Cache    `yaml:"cache"`
	Preview  Preview  `yaml:"preview"`
	Output   Output   `yaml:"output"`
	Server   Server   `yaml:"server"`
	Logging  Logging  `yaml:"logging"`
}

type Catalog struct {
	BaseURL     string        `yaml:"base_url"`
	LibraryType string        `yaml:"library_type"`
	LibraryID   string        `yaml:"library_id"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Limit       int           `yaml:"limit"`
	Format      string        `yaml:"format"`
	Timeout     time.Duration `yaml:"timeout"`
}

type Geocoder struct {
	Enabled       bool          `yaml:"enabled"`
	URL           string        `yaml:"url"`
	UserAgent     string        `yaml:"user_agent"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Workers       int           `yaml:"workers"`
	Timeout       time.Duration `yaml:"timeout"`
}

type Cache struct {
	Driver string        `yaml:"driver"`
	TTL    time.Duration `yaml:"ttl"`
}

type Preview struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// Cache drivers.
const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// ConfigDir returns the XDG config directory for refexplorer.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "refexplorer")
}

// DataDir returns the XDG data directory for refexplorer.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "refexplorer")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/refexplorer/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'refexplorer init' to create a default config",
		xdgConfig,
	)
}

// EnvFiles are the dotenv files LoadEnv reads, in order.
func EnvFiles() []string {
	return []string{".env", filepath.Join(ConfigDir(), ".env")}
}

// LoadEnv reads KEY=value pairs from the given dotenv files into the process
// environment and returns the files it read. Missing files are skipped and
// variables that are already set keep their value.
func LoadEnv(paths ...string) []string {
	var loaded []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			continue
		}
		loaded = append(loaded, p)
	}
	return loaded
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Catalog: Catalog{
			BaseURL:     "https://api.zotero.org",
			LibraryType: "groups",
			APIKeyEnv:   "ZOTERO_API_KEY",
			Limit:       100,
			Format:      "json",
			Timeout:     30 * time.Second,
		},
		Geocoder: Geocoder{
			Enabled:       true,
			URL:           "https://nominatim.openstreetmap.org",
			UserAgent:     "refexplorer/1.0 (reference collection explorer)",
			RatePerSecond: 1,
			Workers:       4,
			Timeout:       10 * time.Second,
		},
		Cache: Cache{
			Driver: DriverSQLite,
			TTL:    24 * time.Hour,
		},
		Preview: Preview{
			Enabled: true,
			Timeout: 15 * time.Second,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Validate rejects settings the rest of the program cannot act on.
func (c *Config) Validate() error {
	switch c.Cache.Driver {
	case DriverSQLite, DriverBolt:
	default:
		return fmt.Errorf("cache.driver must be %q or %q, got %q", DriverSQLite, DriverBolt, c.Cache.Driver)
	}
	switch c.Catalog.Format {
	case "json", "atom":
	default:
		return fmt.Errorf("catalog.format must be \"json\" or \"atom\", got %q", c.Catalog.Format)
	}
	switch c.Catalog.LibraryType {
	case "groups", "users":
	default:
		return fmt.Errorf("catalog.library_type must be \"groups\" or \"users\", got %q", c.Catalog.LibraryType)
	}
	if c.Catalog.Limit < 1 || c.Catalog.Limit > 100 {
		return fmt.Errorf("catalog.limit must be between 1 and 100, got %d", c.Catalog.Limit)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// Verbose reports whether the configured log level asks for debug output.
func (c *Config) Verbose() bool {
	return strings.EqualFold(c.Logging.Level, "DEBUG")
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// CachePath returns the cache file for the configured driver.
func (c *Config) CachePath() string {
	name := "refexplorer.db"
	if c.Cache.Driver == DriverBolt {
		name = "refexplorer.bolt"
	}
	return filepath.Join(c.GetDataDir(), name)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
