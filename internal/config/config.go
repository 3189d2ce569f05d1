// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Images   ImagesConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envDefault:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 0, imports may run long)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" envDefault:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL selects the store by scheme: postgres://, postgresql:// or sqlite:///path
	URL string `env:"DB_URL" envDefault:"sqlite:///instance/collector.db"`

	// AltURL is DATABASE_URL, honored when DB_URL is left at its default
	AltURL string `env:"DATABASE_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" envDefault:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" envDefault:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`

	// AutoMigrate applies embedded migrations when the store is opened (default: true)
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

// ImagesConfig holds card image lookup settings.
type ImagesConfig struct {
	// Dir is the local image root, relative paths resolve against the working directory
	Dir string `env:"IMAGES_DIR" envDefault:"cartas_pt_imagens"`

	// Backend is where images live: local or s3 (default: local)
	Backend string `env:"IMAGES_BACKEND" envDefault:"local"`

	// CacheSize is the number of lookups kept in memory (default: 1024)
	CacheSize int `env:"IMAGES_CACHE_SIZE" envDefault:"1024"`

	// CacheTTL bounds how long a lookup result, found or not, is trusted (default: 5m)
	CacheTTL time.Duration `env:"IMAGES_CACHE_TTL" envDefault:"5m"`

	S3 S3Config
}

// S3Config holds the object store settings used when IMAGES_BACKEND=s3.
type S3Config struct {
	Endpoint  string        `env:"S3_ENDPOINT"`
	AccessKey string        `env:"S3_ACCESS_KEY"`
	SecretKey string        `env:"S3_SECRET_KEY"`
	Bucket    string        `env:"S3_BUCKET"`
	Prefix    string        `env:"S3_PREFIX"`
	Region    string        `env:"S3_REGION"`
	UseSSL    bool          `env:"S3_USE_SSL" envDefault:"true"`
	URLExpiry time.Duration `env:"S3_URL_EXPIRY" envDefault:"15m"`
}

// ImportConfig holds CSV import settings.
type ImportConfig struct {
	// MaxFileSize is the maximum accepted upload size in bytes (default: 50MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" envDefault:"52428800"`

	// MaxConcurrent is how many imports may run at once (default: 1, imports are serialized)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" envDefault:"1"`

	// MaxWait is how long a caller waits for an import slot (default: 30s)
	MaxWait time.Duration `env:"IMPORT_MAX_WAIT" envDefault:"30s"`

	// Timeout is the maximum duration of a single import (default: 10m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" envDefault:"10m"`

	// UploadDir holds uploaded files while they are imported (default: OS temp dir)
	UploadDir string `env:"IMPORT_UPLOAD_DIR"`
}

// RateLimitConfig holds per-client rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`

	// RequestsPerSecond is the sustained rate per client IP (default: 10)
	RequestsPerSecond float64 `env:"RATE_LIMIT_RPS" envDefault:"10"`

	// Burst is the bucket size per client IP (default: 30)
	Burst int `env:"RATE_LIMIT_BURST" envDefault:"30"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" envDefault:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
