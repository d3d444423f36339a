package util

import "testing"

func TestParseMonth(t *testing.T) {
    got, err := ParseMonth("2025-03")
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if got != "2025-03" {
        t.Fatalf("unexpected month %q", got)
    }
}

func TestParseMonthFromDate(t *testing.T) {
    got, err := ParseMonth("2025-03-15")
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if got != "2025-03" {
        t.Fatalf("unexpected month %q", got)
    }
}

func TestParseMonthInvalid(t *testing.T) {
    for _, s := range []string{"", "2025", "2025-13", "2025-3", "03-2025", "2025_03"} {
        if _, err := ParseMonth(s); err == nil {
            t.Fatalf("expected error for %q", s)
        }
    }
}

func TestNextMonth(t *testing.T) {
    cases := map[string]string{
        "2025-01": "2025-02",
        "2025-12": "2026-01",
        "2024-02": "2024-03",
    }
    for in, want := range cases {
        got, err := NextMonth(in)
        if err != nil {
            t.Fatalf("unexpected error for %q: %v", in, err)
        }
        if got != want {
            t.Fatalf("NextMonth(%q) = %q, want %q", in, got, want)
        }
    }
}

func TestYearOf(t *testing.T) {
    if got := YearOf("2025-07"); got != 2025 {
        t.Fatalf("unexpected year %d", got)
    }
}

func TestMonthFileNameRoundTrip(t *testing.T) {
    name := MonthFileName("2025-03")
    if name != "2025_03.json" {
        t.Fatalf("unexpected file name %q", name)
    }
    m, ok := MonthFromFileName(name)
    if !ok || m != "2025-03" {
        t.Fatalf("unexpected month %q ok=%v", m, ok)
    }
    if _, ok := MonthFromFileName("settings.json"); ok {
        t.Fatalf("settings.json should not parse as a month")
    }
}
