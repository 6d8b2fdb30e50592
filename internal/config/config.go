package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppMode        string
	Port           string
	LogLevel       string
	AllowedOrigins string
	Database       DatabaseConfig
	JWT            JWTConfig
	Redis          RedisConfig
	Notify         NotifyConfig
	Cron           CronConfig
	Seed           SeedConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	QueryTimeout time.Duration
	MaxOpenConns int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret          string
	AccessTokenMins int
}

// RedisConfig holds the distributed lock backend. An empty Addr selects the in-process locker.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	LockExpiry time.Duration
}

// NotifyConfig holds alert delivery settings. Unset sinks are skipped.
type NotifyConfig struct {
	WebhookURL   string
	WebhookToken string
	AMQPURL      string
	AMQPQueue    string
}

// CronConfig holds scheduler settings
type CronConfig struct {
	Enabled      bool
	ReminderSpec string
	DispatchSpec string
}

// SeedConfig holds the bootstrap administrator account
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// Supported database drivers
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const defaultJWTSecret = "default_secret"

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// .env is optional; production passes real environment variables
	_ = godotenv.Load()

	// Get APP_MODE (default to "dev") - trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	database, err := loadDatabaseConfig(appMode)
	if err != nil {
		return nil, err
	}
	jwtCfg, err := loadJWTConfig(appMode)
	if err != nil {
		return nil, err
	}
	redisCfg, err := loadRedisConfig()
	if err != nil {
		return nil, err
	}
	cronEnabled, err := strconv.ParseBool(getEnv("CRON_ENABLED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid CRON_ENABLED: %w", err)
	}

	// Build config based on APP_MODE
	config := &Config{
		AppMode:        appMode,
		Port:           getEnv("PORT", "3000"),
		LogLevel:       getEnv("LOG_LEVEL", ""),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", ""),
		Database:       database,
		JWT:            jwtCfg,
		Redis:          redisCfg,
		Notify: NotifyConfig{
			WebhookURL:   getEnv("NOTIFY_WEBHOOK_URL", ""),
			WebhookToken: getEnv("NOTIFY_WEBHOOK_TOKEN", ""),
			AMQPURL:      getEnv("NOTIFY_AMQP_URL", ""),
			AMQPQueue:    getEnv("NOTIFY_AMQP_QUEUE", "royal-collector.alerts"),
		},
		Cron: CronConfig{
			Enabled:      cronEnabled,
			ReminderSpec: getEnv("CRON_REMINDER_SPEC", "30 8 * * *"),
			DispatchSpec: getEnv("CRON_DISPATCH_SPEC", "@every 1m"),
		},
		Seed: SeedConfig{
			AdminEmail:    getEnv("SEED_ADMIN_EMAIL", ""),
			AdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
			AdminName:     getEnv("SEED_ADMIN_NAME", "System Administrator"),
		},
	}

	if config.IsProd() && config.JWT.Secret == defaultJWTSecret {
		return nil, fmt.Errorf("PROD_JWT_SECRET must be set in prod mode")
	}

	// Set global config
	AppConfig = config
	return config, nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) (DatabaseConfig, error) {
	prefix := modePrefix(mode)

	driver := strings.ToLower(getEnv(prefix+"DB_DRIVER", DriverMySQL))
	defaultPort := "3306"
	switch driver {
	case DriverMySQL:
	case DriverPostgres:
		defaultPort = "5432"
	case DriverSQLite:
		defaultPort = ""
	default:
		return DatabaseConfig{}, fmt.Errorf("invalid %sDB_DRIVER: '%s' (must be mysql, postgres or sqlite)", prefix, driver)
	}

	timeout, err := time.ParseDuration(getEnv("DB_QUERY_TIMEOUT", "5s"))
	if err != nil || timeout <= 0 {
		return DatabaseConfig{}, fmt.Errorf("invalid DB_QUERY_TIMEOUT: %q", getEnv("DB_QUERY_TIMEOUT", ""))
	}
	maxOpen, err := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "100"))
	if err != nil || maxOpen < 1 {
		return DatabaseConfig{}, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %q", getEnv("DB_MAX_OPEN_CONNS", ""))
	}

	return DatabaseConfig{
		Driver:       driver,
		Host:         getEnv(prefix+"DB_HOST", "localhost"),
		Port:         getEnv(prefix+"DB_PORT", defaultPort),
		User:         getEnv(prefix+"DB_USER", "root"),
		Password:     getEnv(prefix+"DB_PASS", ""),
		DBName:       getEnv(prefix+"DB_NAME", "royal_collector"),
		QueryTimeout: timeout,
		MaxOpenConns: maxOpen,
	}, nil
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) (JWTConfig, error) {
	prefix := modePrefix(mode)

	accessMins, err := strconv.Atoi(getEnv("ACCESS_TOKEN_MINUTES", "60"))
	if err != nil || accessMins < 1 {
		return JWTConfig{}, fmt.Errorf("invalid ACCESS_TOKEN_MINUTES: %q", getEnv("ACCESS_TOKEN_MINUTES", ""))
	}

	return JWTConfig{
		Secret:          getEnv(prefix+"JWT_SECRET", defaultJWTSecret),
		AccessTokenMins: accessMins,
	}, nil
}

// loadRedisConfig loads the lock backend config
func loadRedisConfig() (RedisConfig, error) {
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	expiry, err := time.ParseDuration(getEnv("REDIS_LOCK_EXPIRY", "10s"))
	if err != nil || expiry <= 0 {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_LOCK_EXPIRY: %q", getEnv("REDIS_LOCK_EXPIRY", ""))
	}

	return RedisConfig{
		Addr:       getEnv("REDIS_ADDR", ""),
		Password:   getEnv("REDIS_PASSWORD", ""),
		DB:         db,
		LockExpiry: expiry,
	}, nil
}

func modePrefix(mode string) string {
	if mode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	if c.AllowedOrigins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://royalcollector.in"
	}
	return c.AllowedOrigins
}
