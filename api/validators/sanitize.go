package validators

import "strings"

// SanitizeString trims input and caps it at maxLen bytes.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}

// SanitizeToken keeps only characters safe to echo in headers and log fields
// (letters, digits, '-', '_', '.', ':') and caps the result at maxLen.
func SanitizeToken(input string, maxLen int) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(input) {
		if maxLen > 0 && b.Len() >= maxLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.' || r == ':':
			b.WriteRune(r)
		}
	}
	return b.String()
}
