package common

import (
	"strconv"
	"strings"
)

// AtoiDefault parses value as an int, returning def on empty or invalid
// input.
func AtoiDefault(value string, def int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return parsed
}
