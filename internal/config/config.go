package config

import (
	"log"
	"os"
	"strconv"

	"sslcommerz-gateway/internal/sslcommerz"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string
	AppPort    string
	AppEnv     string
	LogLevel   string

	StoreID       string
	StorePassword string
	Sandbox       bool
	// NotifyURL is sent as ipn_url; empty means the merchant panel setting applies.
	NotifyURL string
	// ReturnURL is the default customer return URL for checkouts that carry none.
	ReturnURL string

	JWTSecret         string
	InternalSecretKey string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:            os.Getenv("DB_HOST"),
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBName:            os.Getenv("DB_NAME"),
		DBPort:            os.Getenv("DB_PORT"),
		DBSSLMode:         os.Getenv("DB_SSLMODE"),
		AppPort:           os.Getenv("APP_PORT"),
		AppEnv:            os.Getenv("APP_ENV"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		StoreID:           os.Getenv("SSLCOMMERZ_STORE_ID"),
		StorePassword:     os.Getenv("SSLCOMMERZ_STORE_PASSWORD"),
		Sandbox:           parseBool(os.Getenv("SSLCOMMERZ_SANDBOX")),
		NotifyURL:         os.Getenv("SSLCOMMERZ_IPN_URL"),
		ReturnURL:         os.Getenv("SSLCOMMERZ_RETURN_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		InternalSecretKey: os.Getenv("INTERNAL_SECRET_KEY"),
	}

	if cfg.AppPort == "" {
		cfg.AppPort = "8080"
	}

	if cfg.DBSSLMode == "" {
		cfg.DBSSLMode = "disable"
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}

// Credentials returns the store credentials the gateway adapter runs with.
func (c *Config) Credentials() sslcommerz.Credentials {
	return sslcommerz.Credentials{
		StoreID:       c.StoreID,
		StorePassword: c.StorePassword,
		Sandbox:       c.Sandbox,
	}
}

func parseBool(s string) bool {
	v, err := strconv.ParseBool(s)
	return err == nil && v
}
