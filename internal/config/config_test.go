package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Database.URL != "sqlite:///instance/collector.db" {
		t.Errorf("Database.URL = %q, want default sqlite url", cfg.Database.URL)
	}
	if cfg.Images.Dir != "cartas_pt_imagens" {
		t.Errorf("Images.Dir = %q, want %q", cfg.Images.Dir, "cartas_pt_imagens")
	}
	if cfg.Import.MaxConcurrent != 1 {
		t.Errorf("Import.MaxConcurrent = %d, want %d", cfg.Import.MaxConcurrent, 1)
	}
	if cfg.Import.Timeout != 10*time.Minute {
		t.Errorf("Import.Timeout = %v, want %v", cfg.Import.Timeout, 10*time.Minute)
	}
	if cfg.Images.CacheTTL != 5*time.Minute {
		t.Errorf("Images.CacheTTL = %v, want %v", cfg.Images.CacheTTL, 5*time.Minute)
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"SERVER_PORT":           "9090",
		"IMPORT_MAX_CONCURRENT": "2",
		"LOG_LEVEL":             "debug",
		"TRUSTED_PROXIES":       "10.0.0.0/8,127.0.0.1",
	})
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Import.MaxConcurrent != 2 {
		t.Errorf("Import.MaxConcurrent = %d, want %d", cfg.Import.MaxConcurrent, 2)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if len(cfg.Security.TrustedProxies) != 2 {
		t.Errorf("len(Security.TrustedProxies) = %d, want 2", len(cfg.Security.TrustedProxies))
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"DATABASE_URL": "postgres://localhost/alttest"})
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Database.URL != "postgres://localhost/alttest" {
		t.Errorf("Database.URL = %q, want %q", cfg.Database.URL, "postgres://localhost/alttest")
	}

	// DB_URL wins when both are set.
	cfg, err = LoadFrom(map[string]string{
		"DB_URL":       "sqlite:///data/cards.db",
		"DATABASE_URL": "postgres://localhost/alttest",
	})
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Database.URL != "sqlite:///data/cards.db" {
		t.Errorf("Database.URL = %q, want %q", cfg.Database.URL, "sqlite:///data/cards.db")
	}
}

func TestLoad_ProcessEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 7070)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		wantErr string
	}{
		{"bad scheme", map[string]string{"DB_URL": "mysql://x"}, "DB_URL scheme not supported"},
		{"bad port", map[string]string{"SERVER_PORT": "70000"}, "SERVER_PORT"},
		{"bad level", map[string]string{"LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"bad format", map[string]string{"LOG_FORMAT": "xml"}, "LOG_FORMAT"},
		{"bad backend", map[string]string{"IMAGES_BACKEND": "ftp"}, "IMAGES_BACKEND"},
		{"s3 without bucket", map[string]string{"IMAGES_BACKEND": "s3", "S3_ENDPOINT": "localhost:9000"}, "S3_BUCKET"},
		{"zero concurrency", map[string]string{"IMPORT_MAX_CONCURRENT": "0"}, "IMPORT_MAX_CONCURRENT"},
		{"unparsable duration", map[string]string{"IMPORT_TIMEOUT": "soon"}, "config load"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.vars)
			if err == nil {
				t.Fatal("LoadFrom() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	cfg.Server.Port = 0
	cfg.Logging.Level = "nope"

	err = cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "validation failed:") {
		t.Errorf("error = %q, want prefix %q", msg, "validation failed:")
	}
	if strings.Count(msg, "\n  - ") != 2 {
		t.Errorf("error = %q, want 2 entries", msg)
	}
}

func TestDatabaseConfig_Driver(t *testing.T) {
	tests := []struct {
		url        string
		wantDriver string
		wantPath   string
	}{
		{"sqlite:///instance/collector.db", DriverSQLite, "instance/collector.db"},
		{"sqlite:////var/lib/collector.db", DriverSQLite, "/var/lib/collector.db"},
		{"postgres://user:pw@localhost/cards", DriverPostgres, ""},
		{"postgresql://localhost/cards", DriverPostgres, ""},
		{"mysql://localhost/cards", "", ""},
	}

	for _, tt := range tests {
		c := DatabaseConfig{URL: tt.url}
		if got := c.Driver(); got != tt.wantDriver {
			t.Errorf("Driver(%q) = %q, want %q", tt.url, got, tt.wantDriver)
		}
		if tt.wantDriver == DriverSQLite {
			if got := c.SQLitePath(); got != tt.wantPath {
				t.Errorf("SQLitePath(%q) = %q, want %q", tt.url, got, tt.wantPath)
			}
		}
	}
}

func TestConfig_StringMasksCredentials(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"DB_URL": "postgres://admin:hunter2@db/cards"})
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	s := cfg.String()
	if strings.Contains(s, "hunter2") {
		t.Errorf("String() leaked password: %s", s)
	}
	if !strings.Contains(s, "postgres://[MASKED]") {
		t.Errorf("String() = %s, want masked postgres url", s)
	}
}

func TestServerConfig_Addr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"0.0.0.0", 8080, "0.0.0.0:8080"},
		{"", 9000, ":9000"},
		{"::1", 8080, "[::1]:8080"},
	}
	for _, tt := range tests {
		c := ServerConfig{Host: tt.host, Port: tt.port}
		if got := c.Addr(); got != tt.want {
			t.Errorf("Addr() = %q, want %q", got, tt.want)
		}
	}
}
