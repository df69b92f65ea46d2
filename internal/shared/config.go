package shared

import (
	_ "embed"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Discogs  DiscogsConfig  `toml:"discogs"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Export   ExportConfig   `toml:"export"`
	Archive  ArchiveConfig  `toml:"archive"`
	Log      LogConfig      `toml:"log"`
}

// DiscogsConfig contains the upstream endpoints and the path of the
// credentials file.
type DiscogsConfig struct {
	UserAgent       string `toml:"user_agent"`
	APIURL          string `toml:"api_url"`
	WebURL          string `toml:"web_url"`
	AuthorizeURL    string `toml:"authorize_url"`
	CallbackURL     string `toml:"callback_url"`
	CredentialsPath string `toml:"credentials_path"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	SecretKey         string `toml:"secret_key"`
	SessionTTLMinutes int    `toml:"session_ttl_minutes"`
}

// Addr returns host:port for [net/http.Server].
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SessionTTL is the lifetime of a browser session, one hour when unset.
func (s ServerConfig) SessionTTL() time.Duration {
	if s.SessionTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(s.SessionTTLMinutes) * time.Minute
}

// ExportConfig controls template lookup and release fetch pacing.
type ExportConfig struct {
	TemplatePath      string  `toml:"template_path"`
	OutputDir         string  `toml:"output_dir"`
	Workers           int     `toml:"workers"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// ArchiveConfig describes the optional S3-compatible export archive.
type ArchiveConfig struct {
	Bucket          string `toml:"bucket"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	Prefix          string `toml:"prefix"`
}

// Enabled reports whether a bucket is configured.
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// LogConfig holds the log level name.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys absent from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrMissingConfig, err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks values that would otherwise fail later at request time.
func (c *Config) Validate() error {
	if c.Discogs.APIURL == "" {
		return fmt.Errorf("%w: discogs.api_url is required", ErrInvalidConfig)
	}
	if c.Discogs.UserAgent == "" {
		return fmt.Errorf("%w: discogs.user_agent is required", ErrInvalidConfig)
	}
	if c.Export.Workers < 0 {
		return fmt.Errorf("%w: export.workers must not be negative", ErrInvalidConfig)
	}
	if c.Export.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: export.requests_per_second must not be negative", ErrInvalidConfig)
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

// LoadConfigOrDefault loads path when it exists and falls back to the
// embedded defaults otherwise.
func LoadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
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
