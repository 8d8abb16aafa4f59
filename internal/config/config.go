package config

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	// Server
	Env  string `envconfig:"ENV" default:"development"`
	Port string `envconfig:"PORT" default:"8080"`

	// Database. Driver is "postgres" or "sqlite"; SQLitePath is used by the latter.
	DBDriver   string `envconfig:"DB_DRIVER" default:"postgres"`
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"finora"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"finora"`
	DBName     string `envconfig:"DB_NAME" default:"finora"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"finora.db"`

	// JWT
	JWTSecret        string        `envconfig:"JWT_SECRET" default:"fallback-secret-key-for-dev-only"`
	JWTExpirationDur time.Duration `envconfig:"JWT_EXPIRES_IN" default:"15m"`

	// Sweeps
	OverdueSweepInterval  time.Duration `envconfig:"OVERDUE_SWEEP_INTERVAL" default:"1h"`
	ReminderSweepInterval time.Duration `envconfig:"REMINDER_SWEEP_INTERVAL" default:"1m"`
	ReminderLeadDays      int           `envconfig:"REMINDER_LEAD_DAYS" default:"3"`
	ReminderHour          int           `envconfig:"REMINDER_HOUR" default:"9"`
	Timezone              string        `envconfig:"TIMEZONE" default:"UTC"`

	// Classification
	MaxKeywordsPerCategory int `envconfig:"MAX_KEYWORDS_PER_CATEGORY" default:"50"`

	// Optional integrations. Empty values disable them.
	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"finora.events"`
	RedisAddr    string `envconfig:"REDIS_ADDR"`
}

var appConfig *Config

// Load loads configuration from the .env file (if any) and environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	appConfig = &cfg
	return appConfig, nil
}

// Validate checks value ranges that envconfig cannot express.
func (c *Config) Validate() error {
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	if c.OverdueSweepInterval <= 0 || c.ReminderSweepInterval <= 0 {
		return fmt.Errorf("sweep intervals must be positive")
	}
	if c.ReminderLeadDays < 0 {
		return fmt.Errorf("REMINDER_LEAD_DAYS must not be negative, got %d", c.ReminderLeadDays)
	}
	if c.ReminderHour < 0 || c.ReminderHour > 23 {
		return fmt.Errorf("REMINDER_HOUR must be between 0 and 23, got %d", c.ReminderHour)
	}
	if c.MaxKeywordsPerCategory <= 0 {
		return fmt.Errorf("MAX_KEYWORDS_PER_CATEGORY must be positive, got %d", c.MaxKeywordsPerCategory)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PostgresDSN returns the key/value connection string used by GORM.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// PostgresURL returns the URL form used by golang-migrate.
func (c *Config) PostgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

// IsProduction reports whether the app runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.Env == "production"
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// Set replaces the process-wide configuration. Used by tests and CLIs that
// build a Config by hand.
func Set(cfg *Config) {
	appConfig = cfg
}
