package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string

	// External practice backend (EHR) REST API.
	EHRBaseURL string
	EHRAPIKey  string
	EHRTimeout time.Duration

	// Payment gateway.
	PaymentBaseURL   string
	PaymentSecretKey string
	PaymentCurrency  string
	PaymentDryRun    bool

	// Patient session tokens.
	PatientJWTSecret string

	// Redis (selection sessions, message push channel).
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Selection session behaviour.
	SelectionTTL   time.Duration
	BookingLockTTL time.Duration

	// Confirmation email.
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		EHRBaseURL: getEnv("EHR_BASE_URL", ""),
		EHRAPIKey:  getEnv("EHR_API_KEY", ""),
		EHRTimeout: getEnvAsDuration("EHR_TIMEOUT", 15*time.Second),

		PaymentBaseURL:   getEnv("PAYMENT_BASE_URL", ""),
		PaymentSecretKey: getEnv("PAYMENT_SECRET_KEY", ""),
		PaymentCurrency:  strings.ToLower(getEnv("PAYMENT_CURRENCY", "usd")),
		PaymentDryRun:    getEnvAsBool("PAYMENT_DRY_RUN", false),

		PatientJWTSecret: getEnv("PATIENT_JWT_SECRET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		SelectionTTL:   getEnvAsDuration("SELECTION_TTL", 2*time.Hour),
		BookingLockTTL: getEnvAsDuration("BOOKING_LOCK_TTL", 5*time.Minute),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", "bookings@oakwellclinic.com"),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Oakwell Clinic"),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvAsBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return b
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvAsSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
