package foldertree

import (
	"strings"
	"unicode"
)

const maxNameLength = 255

var reservedChars = `<>:"/\|?*`

// SanitizeName replaces each character forbidden in a folder/file name with
// '_', trims whitespace, and caps length. Idempotent:
// SanitizeName(SanitizeName(x)) == SanitizeName(x).
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsControl(r) || strings.ContainsRune(reservedChars, r) {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}

	cleaned := strings.TrimSpace(b.String())
	runes := []rune(cleaned)
	if len(runes) > maxNameLength {
		runes = runes[:maxNameLength]
	}
	return strings.TrimSpace(string(runes))
}
