package jwtx

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidTTL is returned for anything that is not an integer followed by
// one of s, m, h or d.
var ErrInvalidTTL = errors.New("jwtx: invalid ttl")

var ttlPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

var ttlUnits = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
}

// ParseTTL parses the compact TTL grammar ("30s", "15m", "12h", "7d"). The
// same duration feeds both the token's exp claim and the persisted expiry of
// its refresh record.
func ParseTTL(s string) (time.Duration, error) {
	m := ttlPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTTL, s)
	}

	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTTL, s)
	}

	unit := ttlUnits[m[2]]
	if n > math.MaxInt64/int64(unit) {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidTTL, s)
	}
	return time.Duration(n) * unit, nil
}
