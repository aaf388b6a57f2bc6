package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultMaxSourceBytes limits the workout text accepted by the library
// service when library.max_source_bytes is unset.
const DefaultMaxSourceBytes = 64 << 10

type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
	MCP       MCPConfig       `yaml:"mcp" toml:"mcp"`
	Library   LibraryConfig   `yaml:"library" toml:"library"`
}

type ServerConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" toml:"host"`
	Port     int    `yaml:"port" toml:"port"`
	Name     string `yaml:"name" toml:"name"`
	User     string `yaml:"user" toml:"user"`
	Password string `yaml:"password" toml:"password"`
	SSLMode  string `yaml:"sslmode" toml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key" toml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled" toml:"enabled"`
	Hostname string `yaml:"hostname" toml:"hostname"`
	StateDir string `yaml:"state_dir" toml:"state_dir"`
}

type MCPConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
}

type LibraryConfig struct {
	DefaultAuthor  string `yaml:"default_author" toml:"default_author"`
	MaxSourceBytes int    `yaml:"max_source_bytes" toml:"max_source_bytes"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file (or TOML, for a .toml extension), then
// applies environment variable overrides. Env vars use the prefix ZWOGEN_
// and underscore-separated paths:
//
//	ZWOGEN_SERVER_HOST, ZWOGEN_SERVER_PORT,
//	ZWOGEN_DB_HOST, ZWOGEN_DB_PORT, ZWOGEN_DB_NAME,
//	ZWOGEN_DB_USER, ZWOGEN_DB_PASSWORD, ZWOGEN_DB_SSLMODE,
//	ZWOGEN_AUTH_API_KEY,
//	ZWOGEN_TAILSCALE_ENABLED, ZWOGEN_TAILSCALE_HOSTNAME,
//	ZWOGEN_MCP_ENABLED, ZWOGEN_LIBRARY_DEFAULT_AUTHOR
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ZWOGEN_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("ZWOGEN_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ZWOGEN_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("ZWOGEN_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("ZWOGEN_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("ZWOGEN_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("ZWOGEN_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("ZWOGEN_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("ZWOGEN_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("ZWOGEN_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	if v := os.Getenv("ZWOGEN_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("ZWOGEN_MCP_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MCP.Enabled = b
		}
	}
	if v := os.Getenv("ZWOGEN_LIBRARY_DEFAULT_AUTHOR"); v != "" {
		cfg.Library.DefaultAuthor = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "zwogen"
	}
	if cfg.Library.MaxSourceBytes == 0 {
		cfg.Library.MaxSourceBytes = DefaultMaxSourceBytes
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Library.MaxSourceBytes < 0 {
		return fmt.Errorf("library.max_source_bytes must not be negative")
	}
	return nil
}
