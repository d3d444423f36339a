package util

import (
    "fmt"
    "regexp"
    "strconv"
    "strings"
    "time"
)

// Month keys are zero-padded "YYYY-MM", so lexicographic order is chronological.
var monthKeyRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// IsMonthKey reports whether s is a well-formed month key.
func IsMonthKey(s string) bool {
    return monthKeyRe.MatchString(s)
}

// ParseMonth normalizes a month reference to the canonical "YYYY-MM" key.
// Full dates ("YYYY-MM-DD") are accepted and truncated to their month.
func ParseMonth(s string) (string, error) {
    s = strings.TrimSpace(s)
    if len(s) == 10 && s[7] == '-' {
        s = s[:7]
    }
    if !IsMonthKey(s) {
        return "", fmt.Errorf("invalid month %q: want YYYY-MM", s)
    }
    return s, nil
}

// YearOf extracts the year from a month key. The key must already be valid.
func YearOf(month string) int {
    y, _ := strconv.Atoi(month[:4])
    return y
}

// NextMonth returns the month key following the given one.
func NextMonth(month string) (string, error) {
    m, err := ParseMonth(month)
    if err != nil {
        return "", err
    }
    t, err := time.Parse("2006-01", m)
    if err != nil {
        return "", fmt.Errorf("invalid month %q: %w", month, err)
    }
    return t.AddDate(0, 1, 0).Format("2006-01"), nil
}

// MonthFileName maps a month key to its on-disk document name ("2025_03.json").
func MonthFileName(month string) string {
    return strings.ReplaceAll(month, "-", "_") + ".json"
}

// MonthFromFileName is the inverse of MonthFileName. ok is false for
// names that do not look like month documents.
func MonthFromFileName(name string) (string, bool) {
    if !strings.HasSuffix(name, ".json") {
        return "", false
    }
    m := strings.ReplaceAll(strings.TrimSuffix(name, ".json"), "_", "-")
    if !IsMonthKey(m) {
        return "", false
    }
    return m, true
}
