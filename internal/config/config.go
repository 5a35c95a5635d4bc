package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string

	Logger LoggerConfig
	Wallet WalletConfig
}

type LoggerConfig struct {
	Level string
}

// WalletConfig carries the credit policy knobs that are business
// configuration rather than pricing rules.
type WalletConfig struct {
	SignupBonus       decimal.Decimal
	ReferralReward    decimal.Decimal
	DeductRatePerSec  float64
	DeductBurst       int
	WebhookRatePerSec float64
	WebhookBurst      int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "kredo"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "kredo"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		Logger: LoggerConfig{
			Level: getenv("LOG_LEVEL", "info"),
		},
		Wallet: WalletConfig{
			SignupBonus:       getenvDecimal("WALLET_SIGNUP_BONUS", "30"),
			ReferralReward:    getenvDecimal("WALLET_REFERRAL_REWARD", "10"),
			DeductRatePerSec:  getenvFloat("WALLET_DEDUCT_RATE", 50),
			DeductBurst:       getenvInt("WALLET_DEDUCT_BURST", 100),
			WebhookRatePerSec: getenvFloat("WALLET_WEBHOOK_RATE", 10),
			WebhookBurst:      getenvInt("WALLET_WEBHOOK_BURST", 20),
		},
	}
}

func getenv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	raw := getenv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getenvFloat(key string, fallback float64) float64 {
	raw := getenv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func getenvDecimal(key, fallback string) decimal.Decimal {
	value, err := decimal.NewFromString(getenv(key, fallback))
	if err != nil {
		return decimal.RequireFromString(fallback)
	}
	return value
}

// Module provides Config for the fx graph.
func Provide() Config {
	return Load()
}
