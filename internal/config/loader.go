package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

const defaultDatabaseURL = "sqlite:///instance/collector.db"

// Database drivers understood by DatabaseConfig.Driver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
func Load() (*Config, error) {
	return load(env.Options{})
}

// LoadFrom reads configuration from the given variables instead of the process
// environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return load(env.Options{Environment: vars})
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if cfg.Database.URL == defaultDatabaseURL && cfg.Database.AltURL != "" {
		cfg.Database.URL = cfg.Database.AltURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Driver returns the store driver selected by the URL scheme, or "" if the
// scheme is not supported.
func (c *DatabaseConfig) Driver() string {
	switch {
	case strings.HasPrefix(c.URL, "postgres://"), strings.HasPrefix(c.URL, "postgresql://"):
		return DriverPostgres
	case strings.HasPrefix(c.URL, "sqlite://"):
		return DriverSQLite
	default:
		return ""
	}
}

// SQLitePath returns the file path of a sqlite URL.
//
//	sqlite:///instance/collector.db -> instance/collector.db
//	sqlite:////var/lib/collector.db -> /var/lib/collector.db
func (c *DatabaseConfig) SQLitePath() string {
	rest := strings.TrimPrefix(c.URL, "sqlite://")
	return strings.TrimPrefix(rest, "/")
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	switch c.Database.Driver() {
	case DriverSQLite:
		if c.Database.SQLitePath() == "" {
			errs = append(errs, "DB_URL sqlite path is empty")
		}
	case DriverPostgres:
	default:
		errs = append(errs, fmt.Sprintf("DB_URL scheme not supported (want postgres:// or sqlite:///): %q", maskURL(c.Database.URL)))
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Images validation
	switch strings.ToLower(c.Images.Backend) {
	case "local":
		if c.Images.Dir == "" {
			errs = append(errs, "IMAGES_DIR is required for the local backend")
		}
	case "s3":
		if c.Images.S3.Endpoint == "" || c.Images.S3.Bucket == "" {
			errs = append(errs, "S3_ENDPOINT and S3_BUCKET are required when IMAGES_BACKEND=s3")
		}
	default:
		errs = append(errs, fmt.Sprintf("IMAGES_BACKEND (%q) must be one of: local, s3", c.Images.Backend))
	}
	if c.Images.CacheSize <= 0 {
		errs = append(errs, "IMAGES_CACHE_SIZE must be positive")
	}

	// Import validation
	if c.Import.MaxFileSize <= 0 {
		errs = append(errs, "IMPORT_MAX_FILE_SIZE must be positive")
	}
	if c.Import.MaxConcurrent <= 0 {
		errs = append(errs, "IMPORT_MAX_CONCURRENT must be positive")
	}
	if c.Import.MaxWait <= 0 {
		errs = append(errs, "IMPORT_MAX_WAIT must be positive")
	}
	if c.Import.Timeout <= 0 {
		errs = append(errs, "IMPORT_TIMEOUT must be positive")
	}

	// Rate limit validation
	if c.Rate.Enabled && (c.Rate.RequestsPerSecond <= 0 || c.Rate.Burst <= 0) {
		errs = append(errs, "RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Credentials in the database URL and the S3 secret are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Database: {Driver: %q, URL: %s, MaxConns: %d}, ",
		c.Database.Driver(), maskURL(c.Database.URL), c.Database.MaxConns))
	b.WriteString(fmt.Sprintf("Images: {Backend: %q, Dir: %q, CacheSize: %d}, ",
		c.Images.Backend, c.Images.Dir, c.Images.CacheSize))
	b.WriteString(fmt.Sprintf("Import: {MaxFileSize: %d, MaxConcurrent: %d, Timeout: %s}, ",
		c.Import.MaxFileSize, c.Import.MaxConcurrent, c.Import.Timeout))
	b.WriteString(fmt.Sprintf("Rate: {Enabled: %v, RPS: %g, Burst: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerSecond, c.Rate.Burst))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}

// maskURL hides everything but the scheme of network URLs. SQLite paths carry
// no credentials and are shown as-is.
func maskURL(u string) string {
	if strings.HasPrefix(u, "sqlite://") {
		return u
	}
	if i := strings.Index(u, "://"); i > 0 {
		return u[:i+3] + "[MASKED]"
	}
	return "[MASKED]"
}
