// Package config loads the planner's settings from environment variables.
// Every field has a default; Validate reports all problems at once so a
// misconfigured deployment fails on startup.
package config

import (
	"net"
	"strconv"
	"time"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Mail providers.
const (
	MailProviderLog   = "log"
	MailProviderGmail = "gmail"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Mail     MailConfig
	Activity ActivityConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including draining imports.
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// StorageConfig selects and tunes the project repository.
type StorageConfig struct {
	// Driver is "postgres", "sqlite" or "memory".
	Driver string `env:"STORAGE_DRIVER" default:"postgres"`

	// URL is the PostgreSQL connection string, required for the postgres driver.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// SQLitePath is the database file for the sqlite driver.
	SQLitePath string `env:"SQLITE_PATH" default:"planner.db"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// Migrate applies the embedded schema on startup.
	Migrate bool `env:"DB_MIGRATE" default:"true"`
}

// ImportConfig holds CSV import settings.
type ImportConfig struct {
	// MaxFileSize is the largest accepted upload in bytes (default 5MB).
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"5242880"`

	// MaxConcurrent is the number of imports processed at once.
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long an import waits for a free slot.
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"10s"`

	// Timeout bounds a single import including persistence.
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"2m"`

	// HeaderSearchRows is how many leading lines are searched for the header row.
	HeaderSearchRows int `env:"IMPORT_HEADER_SEARCH_ROWS" default:"10"`

	// ExtendedAliases makes "hours" and "estimated" headers count as estimates.
	ExtendedAliases bool `env:"IMPORT_EXTENDED_ALIASES" default:"false"`
}

// RateLimitConfig holds per-IP rate limits.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// ImportLimit is requests per minute for the import endpoints.
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies lists proxy IPs or CIDRs whose forwarding headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey protects /api with the X-API-Key header.
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys lists accepted keys.
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is text or json.
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MailConfig configures outgoing notifications.
type MailConfig struct {
	// Provider is "log" (write messages to the log) or "gmail".
	Provider string `env:"MAIL_PROVIDER" default:"log"`

	// CredentialsFile is the OAuth client JSON downloaded from Google Cloud.
	CredentialsFile string `env:"GMAIL_CREDENTIALS_FILE" default:"credentials.json"`

	// TokenFile holds the authorized user token.
	TokenFile string `env:"GMAIL_TOKEN_FILE" default:"token.json"`

	// From is the sender address.
	From string `env:"MAIL_FROM" default:"planner@localhost"`

	// BaseURL is used to build links in messages.
	BaseURL string `env:"APP_BASE_URL" default:"http://localhost:8080"`
}

// ActivityConfig holds activity log retention settings.
type ActivityConfig struct {
	// RetentionDays is how long activity entries are kept.
	RetentionDays int `env:"ACTIVITY_RETENTION_DAYS" default:"90"`

	// CheckInterval is how often expired entries are purged.
	CheckInterval time.Duration `env:"ACTIVITY_CHECK_INTERVAL" default:"24h"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Retention returns RetentionDays as a duration.
func (c *ActivityConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}
