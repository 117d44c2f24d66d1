package billing

import (
	"math"
	"testing"
	"time"
)

func TestFormatMoneyIndonesian(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{1234567.89, "Rp 1.234.567,89"},
		{1000, "Rp 1.000,00"},
		{75.5, "Rp 75,50"},
		{0, "Rp 0,00"},
		{-12.34, "-Rp 12,34"},
	}
	for _, c := range cases {
		if got := FormatMoney(c.in); got != c.want {
			t.Fatalf("FormatMoney(%v): expected %q, got %q", c.in, c.want, got)
		}
	}
}

func TestFormatMoneyCustomLocale(t *testing.T) {
	l := Locale{Symbol: "$", Thousands: ",", Decimal: "."}
	if got := l.Money(1234.5); got != "$ 1,234.50" {
		t.Fatalf("expected %q, got %q", "$ 1,234.50", got)
	}
	bare := Locale{Decimal: ","}
	if got := bare.Money(1234.5); got != "1234,50" {
		t.Fatalf("expected ungrouped %q, got %q", "1234,50", got)
	}
}

func TestFormatMoneyCoercesNonFinite(t *testing.T) {
	if got := FormatMoney(math.NaN()); got != "Rp 0,00" {
		t.Fatalf("expected NaN to render as zero, got %q", got)
	}
}

func TestFormatPercent(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0.18, "18%"},
		{18, "18%"},
		{0.055, "5,5%"},
		{0.0525, "5,25%"},
		{0, "0%"},
		{1, "100%"},
	}
	for _, c := range cases {
		if got := FormatPercent(c.in); got != c.want {
			t.Fatalf("FormatPercent(%v): expected %q, got %q", c.in, c.want, got)
		}
	}
}

func TestFormatDate(t *testing.T) {
	date := time.Date(2026, time.March, 9, 15, 4, 5, 0, time.UTC)
	if got := FormatDate(date); got != "09/03/2026" {
		t.Fatalf("expected %q, got %q", "09/03/2026", got)
	}
	if got := FormatDate(time.Time{}); got != "" {
		t.Fatalf("expected empty string for zero time, got %q", got)
	}
}
