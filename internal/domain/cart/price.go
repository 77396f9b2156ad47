package cart

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParsePrice normalizes a price given as a number or a string.
//
// Strings are stripped of whitespace, the first comma becomes a period, and
// every remaining character that is neither a digit nor a period is dropped.
// The longest leading decimal ("123" or "123.45") is then parsed. Anything
// unparseable, non-finite or negative yields zero.
func ParsePrice(v any) decimal.Decimal {
	switch p := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return nonNegative(p)
	case float64:
		return fromFloat(p)
	case float32:
		return fromFloat(float64(p))
	case int:
		return nonNegative(decimal.NewFromInt(int64(p)))
	case int64:
		return nonNegative(decimal.NewFromInt(p))
	case int32:
		return nonNegative(decimal.NewFromInt(int64(p)))
	case string:
		return parsePriceString(p)
	default:
		return decimal.Zero
	}
}

func fromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return nonNegative(decimal.NewFromFloat(f))
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func parsePriceString(s string) decimal.Decimal {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	s = strings.Replace(s, ",", ".", 1)
	s = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)

	// Longest leading "digits[.digits]"; a second period ends the number.
	end, dot := 0, false
	for end < len(s) {
		if s[end] == '.' {
			if dot {
				break
			}
			dot = true
		}
		end++
	}
	num := strings.TrimSuffix(s[:end], ".")
	if num == "" || num == "." {
		return decimal.Zero
	}
	if strings.HasPrefix(num, ".") {
		num = "0" + num
	}
	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// CoerceID converts a product identifier to its canonical string form.
// Integral numbers print without a fraction, so 12 and "12" compare equal.
// It reports false when the identifier is missing.
func CoerceID(v any) (string, bool) {
	var id string
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		id = strings.TrimSpace(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", false
		}
		id = strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		id = strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		id = strconv.Itoa(x)
	case int64:
		id = strconv.FormatInt(x, 10)
	case int32:
		id = strconv.FormatInt(int64(x), 10)
	case uint:
		id = strconv.FormatUint(uint64(x), 10)
	case uint64:
		id = strconv.FormatUint(x, 10)
	case interface{ String() string }:
		id = strings.TrimSpace(x.String())
	default:
		return "", false
	}
	return id, id != ""
}

// coerceQuantity converts a requested quantity to an int. Missing or
// non-numeric input becomes 1, fractional numbers are truncated.
func coerceQuantity(v any) int {
	switch q := v.(type) {
	case int:
		return q
	case int64:
		return int(q)
	case int32:
		return int(q)
	case float64:
		if math.IsNaN(q) || math.IsInf(q, 0) {
			return 1
		}
		return int(q)
	case float32:
		return coerceQuantity(float64(q))
	case string:
		s := strings.TrimSpace(q)
		// Leading integer, like parseInt("3 units").
		end := 0
		if end < len(s) && (s[end] == '-' || s[end] == '+') {
			end++
		}
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
		}
		n, err := strconv.Atoi(s[:end])
		if err != nil {
			return 1
		}
		return n
	default:
		return 1
	}
}

// clamp bounds q to [1, limit].
func clamp(q, limit int) int {
	if limit < 1 {
		limit = 1
	}
	return max(1, min(q, limit))
}

// FormatPrice renders an amount in Brazilian notation, e.g. "R$ 19,90".
func FormatPrice(d decimal.Decimal) string {
	return "R$ " + strings.Replace(d.StringFixed(2), ".", ",", 1)
}
