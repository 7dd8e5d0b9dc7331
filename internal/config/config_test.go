package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "absent.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BasicConfig.ServerAddress != DefaultServerAddress {
		t.Fatalf("unexpected address %q", cfg.BasicConfig.ServerAddress)
	}
	if cfg.BasicConfig.Driver != DefaultDriver {
		t.Fatalf("unexpected driver %q", cfg.BasicConfig.Driver)
	}
	want := filepath.Join(dir, DefaultSQLiteDSN)
	if got := cfg.Databases["sqlite3"].DSN; got != want {
		t.Fatalf("sqlite dsn want %q got %q", want, got)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != DefaultMetricsPath {
		t.Fatalf("unexpected metrics config %+v", cfg.Metrics)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"basic_config": {"server_address": ":9000", "driver": "mysql"},
		"databases": {
			"mysql": {"host": "db", "port": 3306, "username": "u", "password": "p", "db_name": "social"},
			"sqlite3": {"dsn": ":memory:"}
		},
		"logging": {"level": "debug"},
		"metrics": {"enabled": false}
	}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SOCIALAPI_ADDR", ":7000")
	t.Setenv("SOCIALAPI_REDIS_ADDR", "cache:6380")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BasicConfig.ServerAddress != ":7000" {
		t.Fatalf("env override ignored, got %q", cfg.BasicConfig.ServerAddress)
	}
	if cfg.BasicConfig.Driver != "mysql" {
		t.Fatalf("unexpected driver %q", cfg.BasicConfig.Driver)
	}
	if cfg.Databases["mysql"].DBName != "social" {
		t.Fatalf("mysql config not decoded: %+v", cfg.Databases["mysql"])
	}
	if cfg.Databases["sqlite3"].DSN != ":memory:" {
		t.Fatalf("memory dsn rewritten: %q", cfg.Databases["sqlite3"].DSN)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("unexpected logging config %+v", cfg.Logging)
	}
	if cfg.Metrics.Enabled {
		t.Fatalf("metrics should be disabled")
	}
	if !cfg.Redis.Enabled || cfg.Redis.Host != "cache" || cfg.Redis.Port != 6380 {
		t.Fatalf("unexpected redis config %+v", cfg.Redis)
	}
}

func TestLoadRejectsBadRedisAddr(t *testing.T) {
	t.Setenv("SOCIALAPI_REDIS_ADDR", "no-port")
	if _, err := Load(filepath.Join(t.TempDir(), "config.json")); err == nil {
		t.Fatalf("expected error for malformed redis address")
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestLoadKeepsMemoryDSNs(t *testing.T) {
	for _, dsn := range []string{":memory:?cache=shared", "file::memory:"} {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.json")
		body := `{"databases": {"sqlite3": {"dsn": "` + dsn + `"}}}`
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if got := cfg.Databases["sqlite3"].DSN; got != dsn {
			t.Fatalf("memory dsn rewritten: want %q got %q", dsn, got)
		}
	}
}
