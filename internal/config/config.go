package config

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultHuggingFaceModelURL = "https://api-inference.huggingface.co/models/facebook/bart-large-mnli"

	PlaidEnvSandbox     = "sandbox"
	PlaidEnvDevelopment = "development"
	PlaidEnvProduction  = "production"
)

// Local web and Expo dev servers.
var defaultCORSOrigins = []string{
	"http://localhost",
	"http://localhost:8080",
	"http://localhost:3000",
	"http://localhost:19006",
}

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Security    SecurityConfig
	HuggingFace HuggingFaceConfig
	Plaid       PlaidConfig
	Encryption  EncryptionConfig
	Dashboard   DashboardConfig
}

type ServerConfig struct {
	Port             string
	Host             string
	Environment      string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	ShutdownTimeout  time.Duration
	CORSAllowOrigins []string
	LogLevel         string
	LogFormat        string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// AutoMigrate applies the SQL migrations at startup; otherwise GORM AutoMigrate keeps the schema.
	AutoMigrate    bool
	Seed           bool
	MigrationsPath string
	SeedsPath      string
	ReadyAttempts  int
	ReadyInterval  time.Duration
}

type JWTConfig struct {
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	PrivateKey           *rsa.PrivateKey
	PublicKey            *rsa.PublicKey
	Issuer               string
}

type SecurityConfig struct {
	BCryptCost          int
	RateLimitPerSecond  int
	RateLimitBurst      int
	MaxFailedAttempts   int
	PasswordMinLength   int
	RequireUppercase    bool
	RequireLowercase    bool
	RequireNumbers      bool
	RequireSpecialChars bool
	AuditRetention      time.Duration
}

// HuggingFaceConfig configures the zero-shot classification client.
// An empty APIKey disables remote classification; every description is then categorized as Other.
type HuggingFaceConfig struct {
	APIKey         string
	ModelURL       string
	Timeout        time.Duration
	MaxConcurrency int
	BreakerMaxFail int
	BreakerReset   time.Duration
}

type PlaidConfig struct {
	ClientID     string
	Secret       string
	Environment  string
	ClientName   string
	Language     string
	Products     []string
	CountryCodes []string
	Timeout      time.Duration
	MaxRetries   int
}

type EncryptionConfig struct {
	Key string
}

type DashboardConfig struct {
	Timeout time.Duration
}

func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8000"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Environment:     getEnv("APP_ENV", "development"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 90*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			LogFormat:       getEnv("LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "nexusmc"),
			Password:        getEnv("DB_PASSWORD", "nexusmc"),
			Name:            getEnv("DB_NAME", "nexusmc"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:  getIntEnv("DB_MAX_CONNECTIONS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			AutoMigrate:     getBoolEnv("AUTO_MIGRATE", false),
			Seed:            getBoolEnv("SEED_DATABASE", false),
			MigrationsPath:  getEnv("DB_MIGRATIONS_PATH", "db/migrations"),
			SeedsPath:       getEnv("DB_SEEDS_PATH", "db/seeds"),
			ReadyAttempts:   getIntEnv("DB_READY_ATTEMPTS", 30),
			ReadyInterval:   getDurationEnv("DB_READY_INTERVAL", 2*time.Second),
		},
		Security: SecurityConfig{
			BCryptCost:          getIntEnv("BCRYPT_COST", 12),
			RateLimitPerSecond:  getIntEnv("RATE_LIMIT_PER_SECOND", 10),
			RateLimitBurst:      getIntEnv("RATE_LIMIT_BURST", 20),
			MaxFailedAttempts:   getIntEnv("MAX_FAILED_ATTEMPTS", 5),
			PasswordMinLength:   getIntEnv("PASSWORD_MIN_LENGTH", 8),
			RequireUppercase:    getBoolEnv("PASSWORD_REQUIRE_UPPERCASE", false),
			RequireLowercase:    getBoolEnv("PASSWORD_REQUIRE_LOWERCASE", false),
			RequireNumbers:      getBoolEnv("PASSWORD_REQUIRE_NUMBERS", false),
			RequireSpecialChars: getBoolEnv("PASSWORD_REQUIRE_SPECIAL", false),
			AuditRetention:      getDurationEnv("AUDIT_RETENTION", 90*24*time.Hour),
		},
		JWT: JWTConfig{
			AccessTokenDuration:  getDurationEnv("JWT_ACCESS_TOKEN_DURATION", 30*time.Minute),
			RefreshTokenDuration: getDurationEnv("JWT_REFRESH_TOKEN_DURATION", 7*24*time.Hour),
			Issuer:               getEnv("JWT_ISSUER", "nexusmc-api"),
		},
		HuggingFace: HuggingFaceConfig{
			APIKey:         os.Getenv("HUGGINGFACE_API_KEY"),
			ModelURL:       getEnv("HF_MODEL_URL", DefaultHuggingFaceModelURL),
			Timeout:        getDurationEnv("HF_TIMEOUT", 15*time.Second),
			MaxConcurrency: getIntEnv("HF_MAX_CONCURRENCY", 8),
			BreakerMaxFail: getIntEnv("HF_BREAKER_MAX_FAILURES", 5),
			BreakerReset:   getDurationEnv("HF_BREAKER_RESET", 30*time.Second),
		},
		Plaid: PlaidConfig{
			ClientID:     os.Getenv("PLAID_CLIENT_ID"),
			Secret:       getEnv("PLAID_SECRET", os.Getenv("PLAID_SECRET_SANDBOX")),
			Environment:  getEnv("PLAID_ENV", PlaidEnvSandbox),
			ClientName:   getEnv("PLAID_CLIENT_NAME", "NexusMC AI"),
			Language:     getEnv("PLAID_LANGUAGE", "es"),
			Products:     getListEnv("PLAID_PRODUCTS", []string{"transactions"}),
			CountryCodes: getListEnv("PLAID_COUNTRY_CODES", []string{"US"}),
			Timeout:      getDurationEnv("PLAID_TIMEOUT", 20*time.Second),
			MaxRetries:   getIntEnv("PLAID_MAX_RETRIES", 2),
		},
		Encryption: EncryptionConfig{
			Key: os.Getenv("ENCRYPTION_KEY"),
		},
		Dashboard: DashboardConfig{
			Timeout: getDurationEnv("DASHBOARD_TIMEOUT", 60*time.Second),
		},
	}

	config.Server.CORSAllowOrigins = getListEnv("CORS_ALLOW_ORIGINS", defaultCORSOrigins)

	if config.HuggingFace.MaxConcurrency < 1 {
		config.HuggingFace.MaxConcurrency = 1
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	var err error
	config.JWT.PrivateKey, config.JWT.PublicKey, err = config.loadJWTKeys()
	if err != nil {
		return nil, fmt.Errorf("failed to load RSA keys: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.Plaid.Environment {
	case PlaidEnvSandbox, PlaidEnvDevelopment, PlaidEnvProduction:
	default:
		return fmt.Errorf("invalid PLAID_ENV %q", c.Plaid.Environment)
	}

	if c.IsProduction() && c.Encryption.Key == "" {
		return errors.New("ENCRYPTION_KEY must be set in production environments")
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// Enabled reports whether Plaid credentials are present.
func (c *PlaidConfig) Enabled() bool {
	return c.ClientID != "" && c.Secret != ""
}

// BaseURL returns the Plaid API host for the configured environment.
func (c *PlaidConfig) BaseURL() string {
	switch c.Environment {
	case PlaidEnvProduction:
		return "https://production.plaid.com"
	case PlaidEnvDevelopment:
		return "https://development.plaid.com"
	default:
		return "https://sandbox.plaid.com"
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) IsTesting() bool {
	return c.Server.Environment == "testing"
}

// Address is the listen address for the HTTP server.
func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *ServerConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated variable, dropping empty items.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
