package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for the payment engine
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Gateway  GatewayConfig
	Business BusinessConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// StorageConfig selects the repository backend: "memory" or "postgres"
type StorageConfig struct {
	Backend string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	StatsTTL time.Duration
}

type GatewayConfig struct {
	Provider    string
	Latency     time.Duration
	FailureRate float64
	Seed        int64
}

type BusinessConfig struct {
	MinAmount       string
	MaxAmount       string
	DefaultCurrency string
	RefundFeeRate   string
	BlockThreshold  int
	HoldThreshold   int
	PendingTTL      time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("SERVER_READ_TIMEOUT", "10s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	viper.SetDefault("STORAGE_BACKEND", "memory")
	viper.SetDefault("DATABASE_HOST", "localhost")
	viper.SetDefault("DATABASE_PORT", "5432")
	viper.SetDefault("DATABASE_NAME", "payment_engine")
	viper.SetDefault("DATABASE_USER", "postgres")
	viper.SetDefault("DATABASE_PASSWORD", "")
	viper.SetDefault("DATABASE_SSLMODE", "disable")
	viper.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DATABASE_CONN_MAX_LIFETIME", "5m")
	viper.SetDefault("REDIS_ENABLED", false)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_STATS_TTL", "30s")
	viper.SetDefault("GATEWAY_PROVIDER", "mockpay")
	viper.SetDefault("GATEWAY_LATENCY", "150ms")
	viper.SetDefault("GATEWAY_FAILURE_RATE", 0.03)
	viper.SetDefault("GATEWAY_SEED", 0)
	viper.SetDefault("PAYMENT_MIN_AMOUNT", "1.00")
	viper.SetDefault("PAYMENT_MAX_AMOUNT", "50000.00")
	viper.SetDefault("PAYMENT_DEFAULT_CURRENCY", "USD")
	viper.SetDefault("REFUND_FEE_RATE", "2")
	viper.SetDefault("FRAUD_BLOCK_THRESHOLD", 85)
	viper.SetDefault("FRAUD_HOLD_THRESHOLD", 50)
	viper.SetDefault("PAYMENT_PENDING_TTL", "24h")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")

	viper.AutomaticEnv()

	// Try to read from .env file (optional)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./deployments")
	_ = viper.ReadInConfig()

	config := &Config{
		Server: ServerConfig{
			Host:         viper.GetString("SERVER_HOST"),
			Port:         viper.GetString("SERVER_PORT"),
			Env:          viper.GetString("ENV"),
			ReadTimeout:  viper.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: viper.GetDuration("SERVER_WRITE_TIMEOUT"),
		},
		Storage: StorageConfig{
			Backend: viper.GetString("STORAGE_BACKEND"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DATABASE_HOST"),
			Port:            viper.GetString("DATABASE_PORT"),
			Name:            viper.GetString("DATABASE_NAME"),
			User:            viper.GetString("DATABASE_USER"),
			Password:        viper.GetString("DATABASE_PASSWORD"),
			SSLMode:         viper.GetString("DATABASE_SSLMODE"),
			MaxOpenConns:    viper.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: viper.GetDuration("DATABASE_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("REDIS_ENABLED"),
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			StatsTTL: viper.GetDuration("REDIS_STATS_TTL"),
		},
		Gateway: GatewayConfig{
			Provider:    viper.GetString("GATEWAY_PROVIDER"),
			Latency:     viper.GetDuration("GATEWAY_LATENCY"),
			FailureRate: viper.GetFloat64("GATEWAY_FAILURE_RATE"),
			Seed:        viper.GetInt64("GATEWAY_SEED"),
		},
		Business: BusinessConfig{
			MinAmount:       viper.GetString("PAYMENT_MIN_AMOUNT"),
			MaxAmount:       viper.GetString("PAYMENT_MAX_AMOUNT"),
			DefaultCurrency: viper.GetString("PAYMENT_DEFAULT_CURRENCY"),
			RefundFeeRate:   viper.GetString("REFUND_FEE_RATE"),
			BlockThreshold:  viper.GetInt("FRAUD_BLOCK_THRESHOLD"),
			HoldThreshold:   viper.GetInt("FRAUD_HOLD_THRESHOLD"),
			PendingTTL:      viper.GetDuration("PAYMENT_PENDING_TTL"),
		},
		Logging: LoggingConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Storage.Backend != "memory" && c.Storage.Backend != "postgres" {
		return fmt.Errorf("STORAGE_BACKEND must be either memory or postgres")
	}

	min, err := decimal.NewFromString(c.Business.MinAmount)
	if err != nil {
		return fmt.Errorf("PAYMENT_MIN_AMOUNT must be a valid decimal: %w", err)
	}

	max, err := decimal.NewFromString(c.Business.MaxAmount)
	if err != nil {
		return fmt.Errorf("PAYMENT_MAX_AMOUNT must be a valid decimal: %w", err)
	}

	if max.LessThanOrEqual(min) {
		return fmt.Errorf("PAYMENT_MAX_AMOUNT must be greater than PAYMENT_MIN_AMOUNT")
	}

	if _, err := decimal.NewFromString(c.Business.RefundFeeRate); err != nil {
		return fmt.Errorf("REFUND_FEE_RATE must be a valid decimal: %w", err)
	}

	if c.Business.BlockThreshold < 0 || c.Business.BlockThreshold > 100 {
		return fmt.Errorf("FRAUD_BLOCK_THRESHOLD must be between 0 and 100")
	}

	if c.Business.HoldThreshold < 0 || c.Business.HoldThreshold > c.Business.BlockThreshold {
		return fmt.Errorf("FRAUD_HOLD_THRESHOLD must be between 0 and FRAUD_BLOCK_THRESHOLD")
	}

	if c.Gateway.FailureRate < 0 || c.Gateway.FailureRate >= 1 {
		return fmt.Errorf("GATEWAY_FAILURE_RATE must be in [0, 1)")
	}

	if c.Business.PendingTTL <= 0 {
		return fmt.Errorf("PAYMENT_PENDING_TTL must be a positive duration")
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// MinAmount returns the minimum chargeable amount as decimal
func (c *Config) MinAmount() decimal.Decimal {
	min, _ := decimal.NewFromString(c.Business.MinAmount)
	return min
}

// MaxAmount returns the maximum chargeable amount as decimal
func (c *Config) MaxAmount() decimal.Decimal {
	max, _ := decimal.NewFromString(c.Business.MaxAmount)
	return max
}

// RefundFeeRate returns the refund fee rate in percentage points
func (c *Config) RefundFeeRate() decimal.Decimal {
	rate, _ := decimal.NewFromString(c.Business.RefundFeeRate)
	return rate
}

// DSN builds the postgres connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Name, c.User, c.Password, c.SSLMode)
}
