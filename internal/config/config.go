package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	JWT        JWTConfig        `yaml:"jwt"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Log        LogConfig        `yaml:"log"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Pricing    PricingConfig    `yaml:"pricing"`
	Trading    TradingConfig    `yaml:"trading"`
	Cache      CacheConfig      `yaml:"cache"`
	Bootstrap  BootstrapConfig  `yaml:"bootstrap"`
}

type ServerConfig struct {
	Host       string `yaml:"host" env:"SERVER_HOST"`
	Port       int    `yaml:"port" env:"SERVER_PORT"`
	Mode       string `yaml:"mode" env:"SERVER_MODE"`
	CORSOrigin string `yaml:"cors_origin" env:"CORS_ORIGIN"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver" env:"DB_DRIVER"`
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     int    `yaml:"port" env:"DB_PORT"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	DBName   string `yaml:"dbname" env:"DB_NAME"`
	SSLMode  string `yaml:"sslmode" env:"DB_SSLMODE"`
	Path     string `yaml:"path" env:"DB_PATH"`
}

type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST"`
	Port     int    `yaml:"port" env:"REDIS_PORT"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

type JWTConfig struct {
	Secret      string `yaml:"secret" env:"JWT_SECRET"`
	AdminSecret string `yaml:"admin_secret" env:"JWT_ADMIN_SECRET"`
	ExpireHours int    `yaml:"expire_hours" env:"JWT_EXPIRE_HOURS"`
}

type EncryptionConfig struct {
	AESKey string `yaml:"aes_key" env:"AES_KEY"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
	Dir    string `yaml:"dir" env:"LOG_DIR"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled" env:"KAFKA_ENABLED"`
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC"`
}

type PricingConfig struct {
	BinanceWSURL   string        `yaml:"binance_ws_url" env:"PRICING_BINANCE_WS_URL"`
	QuoteAPIURL    string        `yaml:"quote_api_url" env:"PRICING_QUOTE_API_URL"`
	QuoteAPIKey    string        `yaml:"quote_api_key" env:"PRICING_QUOTE_API_KEY"`
	RateLimit      float64       `yaml:"rate_limit" env:"PRICING_RATE_LIMIT"`
	RateLimitBurst int           `yaml:"rate_limit_burst" env:"PRICING_RATE_LIMIT_BURST"`
	StaleAfter     time.Duration `yaml:"stale_after" env:"PRICING_STALE_AFTER"`
}

type TradingConfig struct {
	DefaultContractSize float64       `yaml:"default_contract_size" env:"TRADING_DEFAULT_CONTRACT_SIZE"`
	AllowPnLOverride    bool          `yaml:"allow_pnl_override" env:"TRADING_ALLOW_PNL_OVERRIDE"`
	MonitorInterval     time.Duration `yaml:"monitor_interval" env:"TRADING_MONITOR_INTERVAL"`
	SwapRolloverHour    int           `yaml:"swap_rollover_hour" env:"TRADING_SWAP_ROLLOVER_HOUR"`
}

type CacheConfig struct {
	MaxCost int64         `yaml:"max_cost" env:"CACHE_MAX_COST"`
	TTL     time.Duration `yaml:"ttl" env:"CACHE_TTL"`
}

type BootstrapConfig struct {
	AdminEmail    string `yaml:"admin_email" env:"BOOTSTRAP_ADMIN_EMAIL"`
	AdminPassword string `yaml:"admin_password" env:"BOOTSTRAP_ADMIN_PASSWORD"`
}

// Load loads configuration from file and environment variables
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// Environment wins over the file
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}

// Default returns the settings used for anything the file leaves out.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Host: "0.0.0.0", Port: 8080, Mode: "debug", CORSOrigin: "*"},
		Database: DatabaseConfig{Driver: "postgres", Port: 5432, SSLMode: "disable", Path: "brokerdesk.db"},
		Redis:    RedisConfig{Host: "localhost", Port: 6379},
		JWT:      JWTConfig{ExpireHours: 24},
		Log:      LogConfig{Level: "info", Format: "json", Dir: "logs"},
		Kafka:    KafkaConfig{Topic: "brokerdesk.events"},
		Pricing: PricingConfig{
			BinanceWSURL:   "wss://stream.binance.com:9443/stream",
			RateLimit:      5,
			RateLimitBurst: 5,
			StaleAfter:     30 * time.Second,
		},
		Trading: TradingConfig{
			DefaultContractSize: 100000,
			MonitorInterval:     time.Second,
			SwapRolloverHour:    21,
		},
		Cache: CacheConfig{MaxCost: 1 << 20, TTL: time.Minute},
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.JWT.AdminSecret == "" {
		c.JWT.AdminSecret = c.JWT.Secret
	}
	switch len(c.Encryption.AESKey) {
	case 16, 24, 32:
	default:
		return fmt.Errorf("encryption.aes_key must be 16, 24 or 32 bytes, got %d", len(c.Encryption.AESKey))
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required when kafka is enabled")
	}
	if c.Trading.SwapRolloverHour < 0 || c.Trading.SwapRolloverHour > 23 {
		return fmt.Errorf("trading.swap_rollover_hour out of range: %d", c.Trading.SwapRolloverHour)
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

// Addr returns the redis host:port
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Addr returns the HTTP listen address
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
