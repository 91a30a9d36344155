package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	AllowedOrigins     []string

	BackendURL     string
	UploadsURL     string
	BackendTimeout time.Duration

	DisplayCurrency string
	Locale          string
	RateBase        string

	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal

	StorageDriver string
	CartKeyPrefix string
	CartTTL       time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MongoURI      string
	MongoDatabase string
	SQLitePath    string
	PostgresDSN   string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	LogLevel  string
	LogFormat string
}

type configFile struct {
	Server struct {
		Port           string   `yaml:"port"`
		RequestTimeout string   `yaml:"request_timeout"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Backend struct {
		URL        string `yaml:"url"`
		UploadsURL string `yaml:"uploads_url"`
		Timeout    string `yaml:"timeout"`
	} `yaml:"backend"`
	Pricing struct {
		DisplayCurrency       string `yaml:"display_currency"`
		Locale                string `yaml:"locale"`
		FreeShippingThreshold string `yaml:"free_shipping_threshold"`
		ShippingFee           string `yaml:"shipping_fee"`
	} `yaml:"pricing"`
	Storage struct {
		Driver      string `yaml:"driver"`
		KeyPrefix   string `yaml:"key_prefix"`
		TTL         string `yaml:"ttl"`
		RedisAddr   string `yaml:"redis_addr"`
		MongoURI    string `yaml:"mongo_uri"`
		MongoDB     string `yaml:"mongo_database"`
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"storage"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
		GroupID string   `yaml:"group_id"`
	} `yaml:"kafka"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func defaults() Config {
	return Config{
		HTTPPort:              "8080",
		RequestTimeout:        30 * time.Second,
		ShutdownTimeout:       10 * time.Second,
		MaxRequestBodySize:    10 << 20, // 10MB, screenshots included
		AllowedOrigins:        []string{"*"},
		BackendURL:            "http://localhost:5000",
		BackendTimeout:        10 * time.Second,
		DisplayCurrency:       "ETB",
		Locale:                "en",
		RateBase:              "USD",
		FreeShippingThreshold: decimal.NewFromInt(2000),
		ShippingFee:           decimal.NewFromInt(150),
		StorageDriver:         "memory",
		CartKeyPrefix:         "shoppingCart",
		RedisAddr:             "localhost:6379",
		MongoURI:              "mongodb://localhost:27017",
		MongoDatabase:         "storefront",
		SQLitePath:            "storefront.db",
		KafkaTopic:            "order-events",
		KafkaGroupID:          "storefront-cart",
		LogLevel:              "info",
		LogFormat:             "json",
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// CONFIG_FILE and the environment, in that order of precedence. A .env file in
// the working directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaults()
	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&c.HTTPPort, f.Server.Port)
	if len(f.Server.AllowedOrigins) > 0 {
		c.AllowedOrigins = trimNonEmpty(f.Server.AllowedOrigins)
	}
	setString(&c.BackendURL, f.Backend.URL)
	setString(&c.UploadsURL, f.Backend.UploadsURL)
	setString(&c.DisplayCurrency, f.Pricing.DisplayCurrency)
	setString(&c.Locale, f.Pricing.Locale)
	setString(&c.StorageDriver, f.Storage.Driver)
	setString(&c.CartKeyPrefix, f.Storage.KeyPrefix)
	setString(&c.RedisAddr, f.Storage.RedisAddr)
	setString(&c.MongoURI, f.Storage.MongoURI)
	setString(&c.MongoDatabase, f.Storage.MongoDB)
	setString(&c.SQLitePath, f.Storage.SQLitePath)
	setString(&c.PostgresDSN, f.Storage.PostgresDSN)
	if len(f.Kafka.Brokers) > 0 {
		c.KafkaBrokers = trimNonEmpty(f.Kafka.Brokers)
	}
	setString(&c.KafkaTopic, f.Kafka.Topic)
	setString(&c.KafkaGroupID, f.Kafka.GroupID)
	setString(&c.LogLevel, f.Log.Level)
	setString(&c.LogFormat, f.Log.Format)

	for _, d := range []struct {
		raw string
		dst *time.Duration
	}{
		{f.Server.RequestTimeout, &c.RequestTimeout},
		{f.Backend.Timeout, &c.BackendTimeout},
		{f.Storage.TTL, &c.CartTTL},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse config file: %w", err)
		}
		*d.dst = v
	}
	for _, d := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{f.Pricing.FreeShippingThreshold, &c.FreeShippingThreshold},
		{f.Pricing.ShippingFee, &c.ShippingFee},
	} {
		if d.raw == "" {
			continue
		}
		v, err := decimal.NewFromString(d.raw)
		if err != nil {
			return fmt.Errorf("parse config file: %w", err)
		}
		*d.dst = v
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.HTTPPort = getEnv("HTTP_PORT", c.HTTPPort)
	c.AllowedOrigins = getEnvCSV("ALLOWED_ORIGINS", c.AllowedOrigins)
	c.BackendURL = getEnv("BACKEND_URL", c.BackendURL)
	c.UploadsURL = getEnv("UPLOADS_URL", c.UploadsURL)
	c.DisplayCurrency = getEnv("DISPLAY_CURRENCY", c.DisplayCurrency)
	c.Locale = getEnv("LOCALE", c.Locale)
	c.StorageDriver = getEnv("STORAGE_DRIVER", c.StorageDriver)
	c.CartKeyPrefix = getEnv("CART_KEY_PREFIX", c.CartKeyPrefix)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.MongoURI = getEnv("MONGO_URI", c.MongoURI)
	c.MongoDatabase = getEnv("MONGO_DATABASE", c.MongoDatabase)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.PostgresDSN = getEnv("POSTGRES_DSN", c.PostgresDSN)
	c.KafkaBrokers = getEnvCSV("KAFKA_BROKERS", c.KafkaBrokers)
	c.KafkaTopic = getEnv("KAFKA_TOPIC", c.KafkaTopic)
	c.KafkaGroupID = getEnv("KAFKA_GROUP_ID", c.KafkaGroupID)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	var err error
	if c.RedisDB, err = getEnvInt("REDIS_DB", c.RedisDB); err != nil {
		return err
	}
	if c.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", c.RequestTimeout); err != nil {
		return err
	}
	if c.BackendTimeout, err = getEnvDuration("BACKEND_TIMEOUT", c.BackendTimeout); err != nil {
		return err
	}
	if c.CartTTL, err = getEnvDuration("CART_TTL", c.CartTTL); err != nil {
		return err
	}
	if c.FreeShippingThreshold, err = getEnvDecimal("FREE_SHIPPING_THRESHOLD", c.FreeShippingThreshold); err != nil {
		return err
	}
	if c.ShippingFee, err = getEnvDecimal("SHIPPING_FEE", c.ShippingFee); err != nil {
		return err
	}
	return nil
}

func (c *Config) validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("missing BACKEND_URL")
	}
	if c.ShippingFee.IsNegative() || c.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("shipping amounts must not be negative")
	}
	c.DisplayCurrency = strings.ToUpper(c.DisplayCurrency)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvCSV(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return trimNonEmpty(strings.Split(value, ","))
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func trimNonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
