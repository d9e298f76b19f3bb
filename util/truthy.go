package util

import "strings"

// Truthy reports whether s is one of the usual spellings of an enabled
// environment flag.
func Truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y", "on":
		return true
	default:
		return false
	}
}
