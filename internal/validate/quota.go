package validate

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidQuota is wrapped by every quota rejection.
var ErrInvalidQuota = errors.New("invalid quota")

// QuotaError carries the client-facing reason for a rejected quota.
type QuotaError struct {
	Reason string
}

func (e *QuotaError) Error() string { return e.Reason }

func (e *QuotaError) Unwrap() error { return ErrInvalidQuota }

var (
	errQuotaNotInteger = &QuotaError{Reason: "Quota must be an integer"}
	errQuotaNegative   = &QuotaError{Reason: "Quota cannot be negative"}
	errQuotaTooLarge   = &QuotaError{Reason: "Quota exceeds maximum allowed (10GB)"}
)

// Quota coerces raw into a byte quota within [0, MaxQuotaBytes]. Integers,
// integral floats, json.Number and decimal strings are accepted; booleans,
// nil, fractions and anything else are not. Quota is idempotent: feeding its
// result back in returns the same value.
func Quota(raw any) (int64, error) {
	var q int64
	switch v := raw.(type) {
	case int:
		q = int64(v)
	case int8:
		q = int64(v)
	case int16:
		q = int64(v)
	case int32:
		q = int64(v)
	case int64:
		q = v
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, errQuotaTooLarge
		}
		q = int64(v)
	case uint8:
		q = int64(v)
	case uint16:
		q = int64(v)
	case uint32:
		q = int64(v)
	case uint64:
		if v > math.MaxInt64 {
			return 0, errQuotaTooLarge
		}
		q = int64(v)
	case float32:
		return quotaFromFloat(float64(v))
	case float64:
		return quotaFromFloat(v)
	case json.Number:
		return quotaFromString(v.String())
	case string:
		return quotaFromString(v)
	default:
		return 0, errQuotaNotInteger
	}
	return checkQuotaRange(q)
}

func quotaFromString(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return checkQuotaRange(n)
	} else if errors.Is(err, strconv.ErrRange) {
		if strings.HasPrefix(s, "-") {
			return 0, errQuotaNegative
		}
		return 0, errQuotaTooLarge
	}
	// JSON numbers such as 1e9 or 5.0 arrive here.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errQuotaNotInteger
	}
	return quotaFromFloat(f)
}

func quotaFromFloat(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, errQuotaNotInteger
	}
	if f < 0 {
		return 0, errQuotaNegative
	}
	if f > float64(MaxQuotaBytes) {
		return 0, errQuotaTooLarge
	}
	return int64(f), nil
}

func checkQuotaRange(q int64) (int64, error) {
	if q < 0 {
		return 0, errQuotaNegative
	}
	if q > MaxQuotaBytes {
		return 0, errQuotaTooLarge
	}
	return q, nil
}
