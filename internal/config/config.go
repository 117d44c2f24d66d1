package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	CompanyName    string
	CompanyAddress string
	CompanyTaxID   string
	CompanyEmail   string

	Currency         string
	DefaultVatRate   float64
	InvoicePrefix    string
	QuotationPrefix  string
	CreditNotePrefix string
	PaymentTermDays  int

	ReminderLead         time.Duration
	ReminderScanInterval time.Duration
	RemindersEnabled     bool
	EmailEnabled         bool
	EmailFrom            string
	EmailMaxAttempts     int
	EmailRelayURL        string
	EmailRelayAPIKey     string
	EmailRelayTimeout    time.Duration

	DashboardCacheTTL     time.Duration
	DashboardDefaultRange int
	PDFRateLimit          int
	PDFRateWindow         time.Duration
	ListRateLimit         int
	ListRateWindow        time.Duration

	MaxBodyBytes    int64
	SecurityHeaders bool
	HSTSEnabled     bool

	IdempotencyTTL   time.Duration
	LockTTL          time.Duration
	LockRetryBackoff time.Duration

	CircuitMailMinRequests int
	CircuitMailFailureRate float64
	CircuitMailOpenFor     time.Duration

	WorkerConcurrency int
	ShutdownGrace     time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		CompanyName:    strings.TrimSpace(k.String("COMPANY_NAME")),
		CompanyAddress: strings.TrimSpace(k.String("COMPANY_ADDRESS")),
		CompanyTaxID:   strings.TrimSpace(k.String("COMPANY_TAX_ID")),
		CompanyEmail:   strings.TrimSpace(k.String("COMPANY_EMAIL")),

		Currency:         valueOrDefault(k.String("CURRENCY"), "IDR"),
		DefaultVatRate:   parseFloat(k.String("DEFAULT_VAT_RATE"), 11),
		InvoicePrefix:    valueOrDefault(k.String("INVOICE_PREFIX"), "INV"),
		QuotationPrefix:  valueOrDefault(k.String("QUOTATION_PREFIX"), "QUO"),
		CreditNotePrefix: valueOrDefault(k.String("CREDIT_NOTE_PREFIX"), "CN"),
		PaymentTermDays:  parseInt(k.String("PAYMENT_TERM_DAYS"), 14),

		ReminderLead:         parseDuration(k.String("REMINDER_LEAD"), "72h"),
		ReminderScanInterval: parseDuration(k.String("REMINDER_SCAN_INTERVAL"), "10m"),
		RemindersEnabled:     parseBool(k.String("REMINDERS_ENABLED")),
		EmailEnabled:         parseBool(k.String("EMAIL_ENABLED")),
		EmailFrom:            valueOrDefault(k.String("EMAIL_FROM"), "no-reply@faktur.local"),
		EmailMaxAttempts:     parseInt(k.String("EMAIL_MAX_ATTEMPTS"), 8),
		EmailRelayURL:        strings.TrimSpace(k.String("EMAIL_RELAY_URL")),
		EmailRelayAPIKey:     strings.TrimSpace(k.String("EMAIL_RELAY_API_KEY")),
		EmailRelayTimeout:    parseDuration(k.String("EMAIL_RELAY_TIMEOUT"), "5s"),

		DashboardCacheTTL:     parseDuration(k.String("DASHBOARD_CACHE_TTL"), "5m"),
		DashboardDefaultRange: parseInt(k.String("DASHBOARD_DEFAULT_RANGE_DAYS"), 30),
		PDFRateLimit:          parseInt(k.String("PDF_RATE_LIMIT"), 30),
		PDFRateWindow:         parseDuration(k.String("PDF_RATE_WINDOW"), "1m"),
		ListRateLimit:         parseInt(k.String("LIST_RATE_LIMIT"), 120),
		ListRateWindow:        parseDuration(k.String("LIST_RATE_WINDOW"), "1m"),

		MaxBodyBytes:    int64(parseInt(k.String("MAX_BODY_BYTES"), 1<<20)),
		SecurityHeaders: parseBool(valueOrDefault(k.String("SECURITY_HEADERS_ENABLED"), "true")),
		HSTSEnabled:     parseBool(k.String("HSTS_ENABLED")),

		IdempotencyTTL:   parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		LockTTL:          parseDuration(k.String("LOCK_TTL"), "1m"),
		LockRetryBackoff: parseDuration(k.String("LOCK_RETRY_BACKOFF"), "50ms"),

		CircuitMailMinRequests: parseInt(k.String("CIRCUIT_MAIL_MIN_REQUESTS"), 10),
		CircuitMailFailureRate: parseFloat(k.String("CIRCUIT_MAIL_FAILURE_RATE"), 0.5),
		CircuitMailOpenFor:     parseDuration(k.String("CIRCUIT_MAIL_OPEN_FOR"), "30s"),

		WorkerConcurrency: parseInt(k.String("WORKER_CONCURRENCY"), 4),
		ShutdownGrace:     parseDuration(k.String("SHUTDOWN_GRACE"), "10s"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
