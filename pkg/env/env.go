// Package env reads the handful of settings consulted before config.Load,
// such as the log format and platform instance names.
package env

import (
	"os"
	"strings"
)

// First returns the first non-blank variable among keys, or fallback.
func First(fallback string, keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return fallback
}
