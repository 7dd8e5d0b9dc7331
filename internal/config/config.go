package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultServerAddress = ":8080"
	DefaultDriver        = "sqlite3"
	DefaultSQLiteDSN     = "socialapi.db"
	DefaultMetricsPath   = "/metrics"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Logging     LoggingConfig             `json:"logging"`
	Metrics     MetricsConfig             `json:"metrics"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
	Driver        string `json:"driver"`
	GinMode       string `json:"gin_mode"`
}

// DatabaseConfig holds either a DSN (sqlite3) or discrete connection fields (mysql, postgres).
type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Enabled    bool   `json:"enabled"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	DB         int    `json:"db"`
	TTLSeconds int    `json:"ttl_seconds"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// Load reads configuration from the provided path (defaults to config.json).
// A missing file is not an error: defaults plus environment overrides are returned.
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	cfg := Default()
	file, err := os.Open(absPath)
	switch {
	case err == nil:
		defer file.Close()
		if err := json.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.fillDefaults()

	if sqlite, ok := cfg.Databases["sqlite3"]; ok {
		if !strings.HasPrefix(sqlite.DSN, ":memory:") && !strings.HasPrefix(sqlite.DSN, "file:") && !filepath.IsAbs(sqlite.DSN) {
			sqlite.DSN = filepath.Join(filepath.Dir(absPath), sqlite.DSN)
			cfg.Databases["sqlite3"] = sqlite
		}
	}
	return cfg, nil
}

// Default returns a configuration that runs against a local sqlite file.
func Default() *Config {
	return &Config{
		BasicConfig: BasicConfig{
			ServerAddress: DefaultServerAddress,
			Driver:        DefaultDriver,
		},
		Databases: map[string]DatabaseConfig{
			"sqlite3": {DSN: DefaultSQLiteDSN},
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Metrics: MetricsConfig{Enabled: true, Path: DefaultMetricsPath},
	}
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv("SOCIALAPI_DB")); v != "" {
		c.BasicConfig.Driver = v
	}
	if v := strings.TrimSpace(os.Getenv("SOCIALAPI_DSN")); v != "" {
		if c.Databases == nil {
			c.Databases = make(map[string]DatabaseConfig)
		}
		db := c.Databases[c.BasicConfig.Driver]
		db.DSN = v
		c.Databases[c.BasicConfig.Driver] = db
	}
	if v := strings.TrimSpace(os.Getenv("SOCIALAPI_ADDR")); v != "" {
		c.BasicConfig.ServerAddress = v
	}
	if v := strings.TrimSpace(os.Getenv("SOCIALAPI_LOG_LEVEL")); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("SOCIALAPI_REDIS_ADDR")); v != "" {
		host, portStr, ok := strings.Cut(v, ":")
		if !ok {
			return fmt.Errorf("SOCIALAPI_REDIS_ADDR must be host:port, got %q", v)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("parse redis port: %w", err)
		}
		c.Redis.Enabled = true
		c.Redis.Host = host
		c.Redis.Port = port
	}
	return nil
}

func (c *Config) fillDefaults() {
	if c.BasicConfig.ServerAddress == "" {
		c.BasicConfig.ServerAddress = DefaultServerAddress
	}
	if c.BasicConfig.Driver == "" {
		c.BasicConfig.Driver = DefaultDriver
	}
	if c.Databases == nil {
		c.Databases = make(map[string]DatabaseConfig)
	}
	if db, ok := c.Databases["sqlite3"]; !ok || db.DSN == "" {
		db.DSN = DefaultSQLiteDSN
		c.Databases["sqlite3"] = db
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
