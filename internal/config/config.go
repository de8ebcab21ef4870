package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config carries every runtime setting of the service. Values come from
// the environment, optionally seeded from a .env file.
type Config struct {
	DatabaseURL string
	RedisURL    string

	ServerPort  string
	ServerHost  string
	Environment string
	BaseURL     string

	JWTSecret  string
	JWTTTL     time.Duration
	BcryptCost int

	TramitePrefix         string
	FeeAmount             decimal.Decimal
	PendingTimeoutDays    int
	PublishedValidityDays int
	SweepInterval         time.Duration
	MaxUploadBytes        int64

	PaymentMode         string
	PaymentHMACSecret   string
	PaymentMerchantGUID string
	PaymentAPIURL       string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	SMTPHost     string
	SMTPPort     int
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	LogLevel  string
	LogFormat string
}

var (
	ErrMissingDatabaseURL   = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret     = errors.New("JWT_SECRET is required")
	ErrMissingPaymentSecret = errors.New("PAYMENT_HMAC_SECRET is required")
	ErrInvalidFeeAmount     = errors.New("invalid FEE_AMOUNT format")
)

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),

		ServerPort:  getEnvOrDefault("SERVER_PORT", "8080"),
		ServerHost:  getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
		Environment: getEnvOrDefault("ENV", "development"),
		BaseURL:     getEnvOrDefault("BASE_URL", "http://localhost:8080"),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		JWTTTL:     getEnvOrDefaultDuration("JWT_TTL", 8*time.Hour),
		BcryptCost: getEnvOrDefaultInt("BCRYPT_COST", 12),

		TramitePrefix:         getEnvOrDefault("TRAMITE_PREFIX", "CERT"),
		PendingTimeoutDays:    getEnvOrDefaultInt("PENDING_TIMEOUT_DAYS", 60),
		PublishedValidityDays: getEnvOrDefaultInt("PUBLISHED_VALIDITY_DAYS", 30),
		SweepInterval:         getEnvOrDefaultDuration("SWEEP_INTERVAL", time.Hour),
		MaxUploadBytes:        int64(getEnvOrDefaultInt("MAX_UPLOAD_BYTES", 10*1024*1024)),

		PaymentMode:         getEnvOrDefault("PAYMENT_MODE", "sim"),
		PaymentHMACSecret:   os.Getenv("PAYMENT_HMAC_SECRET"),
		PaymentMerchantGUID: os.Getenv("PAYMENT_MERCHANT_GUID"),
		PaymentAPIURL:       getEnvOrDefault("PAYMENT_API_URL", "https://api.pluspagos.test"),

		MinioEndpoint:  getEnvOrDefault("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnvOrDefault("MINIO_BUCKET", "certificados"),
		MinioUseSSL:    getEnvOrDefaultBool("MINIO_USE_SSL", false),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvOrDefaultInt("SMTP_PORT", 587),
		SMTPFrom:     getEnvOrDefault("SMTP_FROM", "no-reply@certificados.gob.ar"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	if cfg.PaymentHMACSecret == "" {
		return nil, ErrMissingPaymentSecret
	}

	fee, err := decimal.NewFromString(getEnvOrDefault("FEE_AMOUNT", "1500.00"))
	if err != nil {
		return nil, ErrInvalidFeeAmount
	}
	cfg.FeeAmount = fee

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvOrDefaultDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		// interpret as seconds if numeric, else parse like Go duration
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n) * time.Second
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return d
	}
	return defaultValue
}
