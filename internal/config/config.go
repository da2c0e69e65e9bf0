package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	Database    DatabaseConfig
	Redis       RedisConfig
	Backend     BackendConfig
	Checkout    CheckoutConfig
	Session     SessionConfig
	Kafka       KafkaConfig
	Admin       AdminConfig
	LogLevel    string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds the cart persistence settings. An empty Addr keeps
// carts in process memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CartTTL  time.Duration
}

// BackendConfig points at the edge functions that create orders, report
// payment status and validate delivery links.
type BackendConfig struct {
	BaseURL string
	AnonKey string
	Timeout time.Duration
}

type CheckoutConfig struct {
	PollInterval  time.Duration
	PollMaxWait   time.Duration
	DownloadDelay time.Duration
}

type SessionConfig struct {
	Secret     string
	CookieName string
	Secure     bool
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type AdminConfig struct {
	APIKeyHash string
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")

	viper.AutomaticEnv()

	// The .env file is optional; plain environment variables are enough.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	redisDB, err := strconv.Atoi(getEnvOrViper("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		Database: DatabaseConfig{
			Host:     getEnvOrViper("DB_HOST", "localhost"),
			Port:     getEnvOrViper("DB_PORT", "5432"),
			User:     getEnvOrViper("DB_USER", "postgres"),
			Password: getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrViper("DB_NAME", "fotofacil"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrViper("REDIS_ADDR", ""),
			Password: getEnvOrViper("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimSuffix(getEnvOrViper("BACKEND_URL", ""), "/"),
			AnonKey: getEnvOrViper("BACKEND_ANON_KEY", ""),
		},
		Session: SessionConfig{
			Secret:     getEnvOrViper("SESSION_SECRET", "dev-session-secret-change-in-production"),
			CookieName: getEnvOrViper("SESSION_COOKIE_NAME", "fotofacil_session"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnvOrViper("KAFKA_BROKERS", "")),
			Topic:   getEnvOrViper("KAFKA_TOPIC", "fotofacil.orders"),
		},
		Admin: AdminConfig{
			APIKeyHash: getEnvOrViper("ADMIN_API_KEY_HASH", ""),
		},
		LogLevel: getEnvOrViper("LOG_LEVEL", "info"),
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"REDIS_CART_TTL", "720h", &cfg.Redis.CartTTL},
		{"BACKEND_TIMEOUT", "30s", &cfg.Backend.Timeout},
		{"CHECKOUT_POLL_INTERVAL", "5s", &cfg.Checkout.PollInterval},
		{"CHECKOUT_POLL_MAX_WAIT", "30m", &cfg.Checkout.PollMaxWait},
		{"CHECKOUT_DOWNLOAD_DELAY", "800ms", &cfg.Checkout.DownloadDelay},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(getEnvOrViper(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	cfg.Session.Secure = cfg.IsProduction()

	if cfg.Backend.BaseURL == "" {
		return nil, fmt.Errorf("BACKEND_URL is required")
	}
	if cfg.Backend.AnonKey == "" {
		return nil, fmt.Errorf("BACKEND_ANON_KEY is required")
	}
	if cfg.Checkout.PollInterval <= 0 {
		return nil, fmt.Errorf("CHECKOUT_POLL_INTERVAL must be positive")
	}
	if cfg.IsProduction() && os.Getenv("SESSION_SECRET") == "" && !viper.IsSet("SESSION_SECRET") {
		return nil, fmt.Errorf("SESSION_SECRET is required in production")
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DSN builds the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
