package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// Booking pipeline configuration
	Booking BookingConfig

	// Demand simulator configuration
	Simulator SimulatorConfig

	// Payment adapter configuration
	Payment PaymentConfig

	// Receipt mailer configuration
	Mailer MailerConfig

	// CORS configuration
	CORS CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret             string
	RefreshSecret      string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// BookingConfig holds hold/reaper tuning for the booking pipeline
type BookingConfig struct {
	HoldTTL             time.Duration // how long a hold reserves seats
	ReaperPeriod        time.Duration // how often expired holds are swept
	PriceDriftTolerance float64       // relative drift allowed between quoted and live fare
}

// SimulatorConfig holds demand simulator tuning
type SimulatorConfig struct {
	Period      time.Duration // tick interval
	WindowHours int           // 0 simulates every upcoming flight; >0 caps the departure window
	MaxStepSize float64       // largest per-tick demand_index move
}

// PaymentConfig holds the simulated payment gateway configuration
type PaymentConfig struct {
	SuccessProbability float64 // 0..1
}

// MailerConfig holds receipt email configuration
type MailerConfig struct {
	Mode     string // "dev" logs receipts instead of sending
	SMTPHost string
	SMTPPort int
	From     string
	Username string
	Password string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			RefreshSecret:      getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenExpiry:  time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
			RefreshTokenExpiry: time.Duration(getEnvAsInt("JWT_REFRESH_TOKEN_EXPIRY", 604800)) * time.Second,
		},
		Booking: BookingConfig{
			HoldTTL:             time.Duration(getEnvAsInt("HOLD_TTL_SECONDS", 900)) * time.Second,
			ReaperPeriod:        time.Duration(getEnvAsInt("REAPER_PERIOD_SECONDS", 60)) * time.Second,
			PriceDriftTolerance: getEnvAsFloat("PRICE_DRIFT_TOLERANCE", 0.01),
		},
		Simulator: SimulatorConfig{
			Period:      time.Duration(getEnvAsInt("SIMULATOR_PERIOD_SECONDS", 300)) * time.Second,
			WindowHours: getEnvAsInt("SIMULATOR_WINDOW_HOURS", 0),
			MaxStepSize: getEnvAsFloat("SIMULATOR_MAX_STEP", 12.0),
		},
		Payment: PaymentConfig{
			SuccessProbability: getEnvAsFloat("PAYMENT_SUCCESS_PROBABILITY", 1.0),
		},
		Mailer: MailerConfig{
			Mode:     getEnv("MAILER_MODE", "dev"),
			SMTPHost: getEnv("SMTP_HOST", ""),
			SMTPPort: getEnvAsInt("SMTP_PORT", 587),
			From:     getEnv("SMTP_FROM", "no-reply@flightbooker.local"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.JWT.RefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}

	if c.Booking.HoldTTL <= 0 {
		return fmt.Errorf("HOLD_TTL_SECONDS must be positive")
	}

	if c.Booking.PriceDriftTolerance < 0 {
		return fmt.Errorf("PRICE_DRIFT_TOLERANCE must be non-negative")
	}

	if c.Simulator.Period <= 0 {
		return fmt.Errorf("SIMULATOR_PERIOD_SECONDS must be positive")
	}

	if c.Payment.SuccessProbability < 0 || c.Payment.SuccessProbability > 1 {
		return fmt.Errorf("PAYMENT_SUCCESS_PROBABILITY must be within [0, 1]")
	}

	if c.Mailer.Mode == "production" && c.Mailer.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST is required in production mailer mode")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid float value for %s, using default: %v", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
