package jwt

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseTTL converts an expiry string into a duration.
//
// Accepted forms are a bare integer of seconds ("900"), a Go duration ("5m",
// "900s", "1h30m") and a whole number of days ("7d"). The result must be positive.
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty expiry")
	}

	var (
		ttl time.Duration
		err error
	)
	switch {
	case isDigits(s):
		var secs int64
		secs, err = strconv.ParseInt(s, 10, 64)
		ttl, err = scale(secs, time.Second, err)
	case strings.HasSuffix(s, "d") && isDigits(strings.TrimSuffix(s, "d")):
		var days int64
		days, err = strconv.ParseInt(strings.TrimSuffix(s, "d"), 10, 64)
		ttl, err = scale(days, 24*time.Hour, err)
	default:
		ttl, err = time.ParseDuration(s)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid expiry %q: %w", s, err)
	}
	if ttl <= 0 {
		return 0, fmt.Errorf("invalid expiry %q: must be > 0", s)
	}

	return ttl, nil
}

var errTTLRange = errors.New("out of range")

// scale multiplies n by unit, refusing values a Duration cannot hold.
func scale(n int64, unit time.Duration, err error) (time.Duration, error) {
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt64/int64(unit) {
		return 0, errTTLRange
	}
	return time.Duration(n) * unit, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
