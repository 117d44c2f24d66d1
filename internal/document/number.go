package document

import "fmt"

// FormatNumber renders a sequential document number such as INV-2026-0001.
// Sequences beyond 9999 keep their natural width.
func FormatNumber(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, seq)
}
