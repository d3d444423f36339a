package util

import (
    "strconv"
    "strings"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
    if s == "" {
        return def
    }
    v, err := strconv.Atoi(s)
    if err != nil {
        return def
    }
    return v
}

// CanonKey folds a user-supplied label (category kind, currency code) to its
// canonical lookup form. Matching is case-insensitive everywhere.
func CanonKey(s string) string {
    return strings.ToLower(strings.TrimSpace(s))
}
