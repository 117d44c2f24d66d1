package billing

import "math"

// roundEpsilon nudges values sitting on a half-cent boundary off the binary
// representation error before rounding, e.g. 1.005 stored as 1.00499...
const roundEpsilon = 1e-9

func sanitizeNumber(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Round2 rounds to two decimals, halves away from zero. Non-finite input
// coerces to zero.
func Round2(v float64) float64 {
	v = sanitizeNumber(v)
	if v == 0 {
		return 0
	}
	adjusted := v + math.Copysign(roundEpsilon, v)
	return math.Round(adjusted*100) / 100
}

// NormalizeRate converts a VAT rate to a fraction. Values above 1 are read
// as percents (18 becomes 0.18), values in (0, 1] pass through unchanged,
// anything else coerces to zero. NormalizeRate(18) == NormalizeRate(0.18).
func NormalizeRate(r float64) float64 {
	r = sanitizeNumber(r)
	if r <= 0 {
		return 0
	}
	if r > 1 {
		return r / 100
	}
	return r
}

// LineNet multiplies quantity by unit price. Non-finite operands coerce to
// zero first. Negative unit prices are legal and keep their sign.
func LineNet(qty, unitPrice float64) float64 {
	return sanitizeNumber(qty) * sanitizeNumber(unitPrice)
}
