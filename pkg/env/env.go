// Package env reads the few settings needed before config.Load runs.
package env

import (
	"os"
	"strings"
)

// LogFormatKey switches the logger between json and console output.
const LogFormatKey = "SKAWSH_LOG_FORMAT"

// Get returns the trimmed value of the given environment variable or a fallback.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// ConsoleLogs reports whether human-readable log output was requested.
func ConsoleLogs() bool {
	return strings.EqualFold(Get(LogFormatKey, "json"), "console")
}
