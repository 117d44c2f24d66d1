package billing

import (
	"math"
	"testing"
)

func TestDiscountAmountPercent(t *testing.T) {
	got := DiscountAmount(1000, Discount{Type: DiscountPercent, Value: 10})
	if got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
}

func TestDiscountAmountPercentClampsValue(t *testing.T) {
	if got := DiscountAmount(200, Discount{Type: DiscountPercent, Value: 150}); got != 200 {
		t.Fatalf("expected percent above 100 to clamp to subtotal, got %v", got)
	}
	if got := DiscountAmount(200, Discount{Type: DiscountPercent, Value: -10}); got != 0 {
		t.Fatalf("expected negative percent to clamp to 0, got %v", got)
	}
}

func TestDiscountAmountFixedClampsToSubtotal(t *testing.T) {
	if got := DiscountAmount(100, Discount{Type: DiscountFixed, Value: 500}); got != 100 {
		t.Fatalf("expected fixed discount to clamp to subtotal, got %v", got)
	}
	if got := DiscountAmount(100, Discount{Type: DiscountFixed, Value: -50}); got != 0 {
		t.Fatalf("expected negative fixed discount to clamp to 0, got %v", got)
	}
	if got := DiscountAmount(100, Discount{Type: DiscountFixed, Value: 50}); got != 50 {
		t.Fatalf("expected 50, got %v", got)
	}
}

func TestDiscountAmountNoneAndUnknown(t *testing.T) {
	if got := DiscountAmount(1000, Discount{}); got != 0 {
		t.Fatalf("expected zero discount for empty type, got %v", got)
	}
	if got := DiscountAmount(1000, Discount{Type: "mystery", Value: 10}); got != 0 {
		t.Fatalf("expected zero discount for unknown type, got %v", got)
	}
	if got := DiscountAmount(1000, Discount{Type: DiscountNone, Value: 10}); got != 0 {
		t.Fatalf("expected zero discount for none type, got %v", got)
	}
}

func TestDiscountAmountNegativeSubtotal(t *testing.T) {
	if got := DiscountAmount(-50, Discount{Type: DiscountFixed, Value: 10}); got != 0 {
		t.Fatalf("expected zero discount on negative subtotal, got %v", got)
	}
	if got := DiscountAmount(-50, Discount{Type: DiscountPercent, Value: 10}); got != 0 {
		t.Fatalf("expected zero percent discount on negative subtotal, got %v", got)
	}
}

func TestDiscountAmountNonFiniteValue(t *testing.T) {
	if got := DiscountAmount(1000, Discount{Type: DiscountFixed, Value: math.NaN()}); got != 0 {
		t.Fatalf("expected NaN value to coerce to 0, got %v", got)
	}
}

func TestParseDiscountType(t *testing.T) {
	if got := ParseDiscountType("percent"); got != DiscountPercent {
		t.Fatalf("expected percent, got %q", got)
	}
	if got := ParseDiscountType("fixed"); got != DiscountFixed {
		t.Fatalf("expected fixed, got %q", got)
	}
	if got := ParseDiscountType("whatever"); got != DiscountNone {
		t.Fatalf("expected none fallback, got %q", got)
	}
}
