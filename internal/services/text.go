package services

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// clean trims surrounding whitespace and normalizes s to NFC so visually
// identical input is stored and compared identically.
func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// preview clips s to n runes for log lines and event payloads.
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
