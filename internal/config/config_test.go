package config

import "testing"

func TestLoadRequiresDatabaseURL(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"DATABASE_URL": "",
		"REDIS_URL":    "redis://localhost:6379/0",
	})
	if err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":     "postgres://localhost:5432/faktur",
		"REDIS_URL":        "redis://localhost:6379/0",
		"PORT":             "",
		"INVOICE_PREFIX":   "",
		"DEFAULT_VAT_RATE": "",
		"REMINDER_LEAD":    "",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.InvoicePrefix != "INV" {
		t.Fatalf("expected default invoice prefix INV, got %q", cfg.InvoicePrefix)
	}
	if cfg.DefaultVatRate != 11 {
		t.Fatalf("expected default VAT rate 11, got %v", cfg.DefaultVatRate)
	}
	if cfg.Currency != "IDR" {
		t.Fatalf("expected default currency IDR, got %q", cfg.Currency)
	}
	if cfg.EmailMaxAttempts != 8 {
		t.Fatalf("expected default email max attempts 8, got %d", cfg.EmailMaxAttempts)
	}
	if cfg.ReminderLead.Hours() != 72 {
		t.Fatalf("expected default reminder lead 72h, got %v", cfg.ReminderLead)
	}
	if cfg.HTTPAddr() != ":8080" {
		t.Fatalf("expected :8080, got %q", cfg.HTTPAddr())
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":         "postgres://localhost:5432/faktur",
		"REDIS_URL":            "redis://localhost:6379/0",
		"CORS_ALLOWED_ORIGINS": "https://app.example.com, https://staging.example.com",
		"PAYMENT_TERM_DAYS":    "30",
		"EMAIL_ENABLED":        "true",
		"PDF_RATE_LIMIT":       "5",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected two origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.PaymentTermDays != 30 {
		t.Fatalf("expected payment term 30, got %d", cfg.PaymentTermDays)
	}
	if !cfg.EmailEnabled {
		t.Fatal("expected email enabled")
	}
	if cfg.PDFRateLimit != 5 {
		t.Fatalf("expected pdf rate limit 5, got %d", cfg.PDFRateLimit)
	}
}
