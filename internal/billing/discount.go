package billing

// DiscountType selects how a document level discount is interpreted.
type DiscountType string

const (
	// DiscountNone disables the discount regardless of value.
	DiscountNone DiscountType = "none"
	// DiscountPercent reads Value as a percentage of the subtotal, clamped to [0, 100].
	DiscountPercent DiscountType = "percent"
	// DiscountFixed reads Value as an absolute amount, clamped to [0, subtotal].
	DiscountFixed DiscountType = "fixed"
)

// Discount describes a document level discount.
type Discount struct {
	Type  DiscountType
	Value float64
}

// ParseDiscountType maps free-form input to a known discount type. Unknown
// values fall back to DiscountNone.
func ParseDiscountType(s string) DiscountType {
	switch DiscountType(s) {
	case DiscountPercent, DiscountFixed:
		return DiscountType(s)
	default:
		return DiscountNone
	}
}

// DiscountAmount computes the rounded discount for the given subtotal. The
// result is always within [0, max(subtotal, 0)]; a discount never exceeds
// the subtotal and never goes negative.
func DiscountAmount(subtotal float64, d Discount) float64 {
	subtotal = sanitizeNumber(subtotal)
	value := sanitizeNumber(d.Value)

	ceiling := subtotal
	if ceiling < 0 {
		ceiling = 0
	}

	var amount float64
	switch d.Type {
	case DiscountPercent:
		if value < 0 {
			value = 0
		}
		if value > 100 {
			value = 100
		}
		amount = Round2(subtotal * value / 100)
	case DiscountFixed:
		amount = value
	default:
		return 0
	}

	if amount < 0 {
		return 0
	}
	if amount > ceiling {
		return ceiling
	}
	return amount
}
