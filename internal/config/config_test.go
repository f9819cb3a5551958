package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pitwall.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "data/pitwall.db" {
		t.Errorf("database path = %s", cfg.Database.Path)
	}
	if cfg.Resolver.NamePolicy != "latest" || !cfg.Backup.BeforeSync || cfg.Backup.Retention != 7 {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Sources.OpenF1.RequestsPerSecond != 3 {
		t.Errorf("openf1 rps = %v", cfg.Sources.OpenF1.RequestsPerSecond)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /var/lib/pitwall/pitwall.db
logging:
  level: debug
  format: text
sources:
  openf1:
    base_url: http://localhost:8000/v1/
    requests_per_second: 0
  archive:
    path: /srv/ergast.db
resolver:
  name_policy: preserve
  overrides_path: /etc/pitwall/overrides.yaml
backup:
  dir: ""
  retention: 3
metrics:
  textfile_path: /var/lib/node_exporter/pitwall.prom
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Sources.OpenF1.BaseURL != "http://localhost:8000/v1" {
		t.Errorf("base url not trimmed: %s", cfg.Sources.OpenF1.BaseURL)
	}
	if cfg.Sources.Archive.Path != "/srv/ergast.db" || cfg.Resolver.NamePolicy != "preserve" {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.Backup.Dir != "/var/lib/pitwall/backups" || cfg.Backup.Retention != 3 {
		t.Errorf("backup = %+v", cfg.Backup)
	}
	if cfg.Metrics.TextfilePath == "" {
		t.Error("metrics textfile path not loaded")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: warn\n")
	t.Setenv("PW_LOG_LEVEL", "error")
	t.Setenv("PW_DB_PATH", "/tmp/pw.db")
	t.Setenv("PW_OPENF1_RPS", "1.5")
	t.Setenv("PW_BACKUP_BEFORE_SYNC", "false")
	t.Setenv("PW_BACKUP_RETENTION", "10")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Database.Path != "/tmp/pw.db" {
		t.Errorf("env did not win: %+v", cfg)
	}
	if cfg.Sources.OpenF1.RequestsPerSecond != 1.5 || cfg.Backup.BeforeSync || cfg.Backup.Retention != 10 {
		t.Errorf("typed env values: %+v %+v", cfg.Sources.OpenF1, cfg.Backup)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
	}{
		{name: "name policy", yaml: "resolver:\n  name_policy: newest\n", wantErr: "name policy"},
		{name: "log level", yaml: "logging:\n  level: trace\n", wantErr: "log level"},
		{name: "retention", yaml: "backup:\n  retention: 0\n", wantErr: "retention"},
		{name: "rate", yaml: "sources:\n  openf1:\n    requests_per_second: -1\n", wantErr: "requests_per_second"},
		{name: "bad env int", env: map[string]string{"PW_BACKUP_MAX_AGE_DAYS": "soon"}, wantErr: "PW_BACKUP_MAX_AGE_DAYS"},
		{name: "bad yaml", yaml: "database: [", wantErr: "loading config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}
