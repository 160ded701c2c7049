package jwt

import (
	"strings"
	"testing"
	"time"
)

func TestParseTTL(t *testing.T) {
	cases := map[string]time.Duration{
		"900":   900 * time.Second,
		"5m":    5 * time.Minute,
		"900s":  900 * time.Second,
		"1h30m": 90 * time.Minute,
		"7d":    7 * 24 * time.Hour,
		" 60 ":  time.Minute,
	}
	for in, want := range cases {
		got, err := ParseTTL(in)
		if err != nil {
			t.Fatalf("ParseTTL(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseTTL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseTTLRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "0", "-5m", "abc", "d", "5x"} {
		if _, err := ParseTTL(in); err == nil {
			t.Fatalf("ParseTTL(%q): expected error", in)
		}
	}
}

func TestParseTTLRejectsOverflow(t *testing.T) {
	for _, in := range []string{"9223372037", "18446744074", "106751992d", "213503983d", "99999999999999999999"} {
		got, err := ParseTTL(in)
		if err == nil {
			t.Fatalf("ParseTTL(%q) = %v, expected error", in, got)
		}
		if strings.Contains(err.Error(), "must be > 0") {
			t.Fatalf("ParseTTL(%q): misleading error %v", in, err)
		}
	}

	// largest values that still fit
	if _, err := ParseTTL("9223372036"); err != nil {
		t.Fatalf("ParseTTL(max seconds): %v", err)
	}
	if _, err := ParseTTL("106751d"); err != nil {
		t.Fatalf("ParseTTL(max days): %v", err)
	}
}
