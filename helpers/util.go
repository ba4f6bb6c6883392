package helpers

import (
	"strings"
)

// NormalizeSpace trims s and collapses every whitespace run to one space
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SameLabel reports whether two UI labels are equal ignoring case and spacing
func SameLabel(a, b string) bool {
	return strings.EqualFold(NormalizeSpace(a), NormalizeSpace(b))
}

// OrDefault returns value, or fallback when value is blank
func OrDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
