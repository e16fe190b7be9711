package recipe

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors for amount coercion. Check with errors.Is().
var (
	// ErrUnparseableAmount indicates the amount has no numeric interpretation.
	ErrUnparseableAmount = errors.New("unparseable amount")

	// ErrNegativeAmount indicates the amount parsed to a negative number.
	ErrNegativeAmount = errors.New("negative amount")
)

// toTaste is the literal phrase treated as a zero amount.
const toTaste = "по вкусу"

// ParseAmount coerces an ingredient amount from the shapes models actually
// produce: JSON numbers, numeric strings with decimal commas, ranges like
// "2-3" (averaged), and "по вкусу" or an empty string (zero).
func ParseAmount(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return checkSign(n)
	case int:
		return checkSign(float64(n))
	case int64:
		return checkSign(float64(n))
	case string:
		return parseAmountString(n)
	case nil:
		return 0, fmt.Errorf("%w: amount is missing", ErrUnparseableAmount)
	default:
		return 0, fmt.Errorf("%w: unsupported amount type %T", ErrUnparseableAmount, v)
	}
}

func parseAmountString(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, toTaste) {
		return 0, nil
	}

	s = strings.ReplaceAll(s, ",", ".")

	// A hyphen after the first character marks a range like "2-3" or "0.5-1".
	// A leading hyphen is a sign, not a range.
	if i := strings.Index(s[1:], "-"); i >= 0 {
		i++
		first, errFirst := strconv.ParseFloat(strings.TrimSpace(s[:i]), 64)
		if errFirst == nil {
			if second, errSecond := strconv.ParseFloat(strings.TrimSpace(s[i+1:]), 64); errSecond == nil {
				return checkSign((first + second) / 2)
			}
			// Unparseable upper bound: fall back to the lower bound alone.
			return checkSign(first)
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparseableAmount, raw)
	}
	return checkSign(f)
}

func checkSign(f float64) (float64, error) {
	if f < 0 {
		return 0, fmt.Errorf("%w: %v", ErrNegativeAmount, f)
	}
	return f, nil
}
