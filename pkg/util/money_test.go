package util

import "testing"

func TestRound2(t *testing.T) {
    cases := map[float64]float64{
        92.0042:  92.0,
        92.016:   92.02,
        -3.14159: -3.14,
        0:        0,
    }
    for in, want := range cases {
        if got := Round2(in); got != want {
            t.Fatalf("Round2(%v) = %v, want %v", in, got, want)
        }
    }
}

func TestRound4(t *testing.T) {
    if got := Round4(0.59798123); got != 0.598 {
        t.Fatalf("unexpected %v", got)
    }
    if got := Round4(0.57698); got != 0.577 {
        t.Fatalf("unexpected %v", got)
    }
}
