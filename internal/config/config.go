package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the API reads from the environment.
type Config struct {
	AppEnv   string
	LogLevel string
	Port     int

	// --- Database ---
	PrimaryDSN  string
	ReadOnlyDSN string

	// --- Auth ---
	JWTSecret  string
	JWTTTL     time.Duration
	CORSOrigin string

	// --- Optional infrastructure ---
	RedisAddr       string
	KafkaBrokers    []string
	KafkaOrderTopic string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeCurrency      string

	GeminiAPIKey string
	GeminiModel  string

	// --- Workers & limits ---
	OutboxInterval time.Duration
	RateLimitRPS   float64
	RateLimitBurst int

	// Unpaid pending orders older than PendingOrderTTL are cancelled; 0 disables the sweep.
	PendingOrderTTL time.Duration
	SweepInterval   time.Duration
}

// Load reads the .env file (if present) and then the process environment.
// The returned bool reports whether a .env file was found.
func Load() (Config, bool) {
	envLoaded := godotenv.Load() == nil

	cfg := Config{
		AppEnv:   getEnv("APP_ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvInt("PORT", 8080),

		PrimaryDSN:  getEnv("DB_DSN_PRIMARY", "root:root@tcp(127.0.0.1:3306)/storefront?parseTime=true"),
		ReadOnlyDSN: os.Getenv("DB_DSN_READONLY"),

		JWTSecret:  getEnv("JWT_SECRET", "A_VERY_SECURE_SECRET_KEY_REPLACE_LATER"),
		JWTTTL:     time.Duration(getEnvInt("JWT_TTL_HOURS", 72)) * time.Hour,
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:5173"),

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		KafkaBrokers:    splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaOrderTopic: getEnv("KAFKA_ORDER_TOPIC", "order-events"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getEnvInt("SMTP_PORT", 587),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: getEnv("SMTP_FROM", "no-reply@storefront.local"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripeCurrency:      strings.ToLower(getEnv("STRIPE_CURRENCY", "usd")),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		OutboxInterval: getEnvDuration("OUTBOX_INTERVAL", 5*time.Second),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),

		PendingOrderTTL: pendingOrderTTL(),
		SweepInterval:   getEnvDuration("SWEEP_INTERVAL", 10*time.Minute),
	}

	return cfg, envLoaded
}

// IsProduction is true for APP_ENV=prod or production.
func (c Config) IsProduction() bool {
	env := strings.ToLower(c.AppEnv)
	return env == "prod" || env == "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func pendingOrderTTL() time.Duration {
	if os.Getenv("PENDING_ORDER_TTL") == "0" {
		return 0
	}
	return getEnvDuration("PENDING_ORDER_TTL", 48*time.Hour)
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
