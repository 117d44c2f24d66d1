package billing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Locale controls how money, percents and dates are rendered.
type Locale struct {
	Symbol     string
	Thousands  string
	Decimal    string
	DateLayout string
}

// Indonesian is the default rendering locale: rupiah symbol, dot thousands,
// comma decimals, day/month/year dates.
var Indonesian = Locale{
	Symbol:     "Rp",
	Thousands:  ".",
	Decimal:    ",",
	DateLayout: "02/01/2006",
}

// FormatMoney renders v in the default locale, e.g. "Rp 1.234.567,89".
func FormatMoney(v float64) string { return Indonesian.Money(v) }

// FormatPercent renders a VAT rate in the default locale, e.g. "18%".
func FormatPercent(rate float64) string { return Indonesian.Percent(rate) }

// FormatDate renders t in the default locale, e.g. "31/12/2026".
func FormatDate(t time.Time) string { return Indonesian.Date(t) }

// Money renders a rounded amount with symbol prefix, thousands grouping and
// exactly two decimals. The sign precedes the symbol: "-Rp 12,34".
func (l Locale) Money(v float64) string {
	v = Round2(v)
	neg := v < 0
	if neg {
		v = -v
	}
	cents := int64(math.Round(v * 100))
	whole := cents / 100
	frac := cents % 100

	var b strings.Builder
	if neg {
		b.WriteString("-")
	}
	if l.Symbol != "" {
		b.WriteString(l.Symbol)
		b.WriteString(" ")
	}
	b.WriteString(groupDigits(strconv.FormatInt(whole, 10), l.Thousands))
	b.WriteString(l.decimalSep())
	fmt.Fprintf(&b, "%02d", frac)
	return b.String()
}

// Percent renders a rate (fraction or percent) without trailing zeros:
// 0.18 yields "18%", 0.055 yields "5,5%".
func (l Locale) Percent(rate float64) string {
	pct := NormalizeRate(rate) * 100
	s := fmt.Sprintf("%.2f", Round2(pct))
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	s = strings.ReplaceAll(s, ".", l.decimalSep())
	return s + "%"
}

// Date renders t as day/month/year. The zero time renders empty.
func (l Locale) Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	layout := l.DateLayout
	if layout == "" {
		layout = "02/01/2006"
	}
	return t.Format(layout)
}

func (l Locale) decimalSep() string {
	if l.Decimal == "" {
		return ","
	}
	return l.Decimal
}

func groupDigits(digits, sep string) string {
	if sep == "" || len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
