package util

import "strings"

// SanitizeDBText strips invalid UTF-8 and NUL bytes before a value is
// written to a storage backend. Postgres rejects NUL in text columns.
func SanitizeDBText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}
