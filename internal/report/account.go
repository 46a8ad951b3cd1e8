package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	accountIDWidth = 12
	maxAccountID   = 999_999_999_999
)

// AccountID is a 12-digit cloud account number.
type AccountID uint64

// String returns the canonical zero-padded representation.
func (a AccountID) String() string {
	return fmt.Sprintf("%0*d", accountIDWidth, uint64(a))
}

// ParseAccountID parses 1 to 12 decimal digits.
func ParseAccountID(s string) (AccountID, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > accountIDWidth {
		return 0, fmt.Errorf("invalid account id %q", s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid account id %q", s)
		}
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid account id %q: %w", s, err)
	}
	return AccountID(n), nil
}

// AccountIDFromValue converts a scanned database value to an AccountID.
func AccountIDFromValue(v any) (AccountID, bool) {
	switch n := v.(type) {
	case AccountID:
		return n, true
	case int64:
		return accountFromInt(n)
	case int:
		return accountFromInt(int64(n))
	case int32:
		return accountFromInt(int64(n))
	case uint64:
		if n > maxAccountID {
			return 0, false
		}
		return AccountID(n), true
	case float64:
		if n < 0 || n > maxAccountID || n != math.Trunc(n) {
			return 0, false
		}
		return AccountID(n), true
	case string:
		id, err := ParseAccountID(n)
		return id, err == nil
	case []byte:
		id, err := ParseAccountID(string(n))
		return id, err == nil
	default:
		return 0, false
	}
}

func accountFromInt(n int64) (AccountID, bool) {
	if n < 0 || n > maxAccountID {
		return 0, false
	}
	return AccountID(n), true
}
