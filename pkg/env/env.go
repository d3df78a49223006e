package env

import (
	"os"
	"strings"
)

// Prefix is prepended to keys when the bare key is not set.
const Prefix = "TABLESIDE_"

// Get returns the value of key, then of Prefix+key, or the fallback.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	if val := strings.TrimSpace(os.Getenv(Prefix + key)); val != "" {
		return val
	}
	return fallback
}
