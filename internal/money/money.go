package money

import (
	"math"
	"strconv"
	"strings"

	"market/internal/common"

	"github.com/shopspring/decimal"
)

var (
	maxUnits = decimal.NewFromInt(math.MaxInt64)
	minUnits = decimal.NewFromInt(math.MinInt64)
)

// ParseUnits parses a whole-unit amount. Fractions are rejected rather than
// rounded; values outside int64 report common.ErrOverflow.
func ParseUnits(input string) (int64, error) {
	trimmed := strings.TrimSpace(strings.ReplaceAll(input, ",", ""))
	if trimmed == "" {
		return 0, common.ErrInvalidAmount
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, common.ErrInvalidAmount
	}
	if !value.IsInteger() {
		return 0, common.ErrInvalidAmount
	}
	if value.GreaterThan(maxUnits) || value.LessThan(minUnits) {
		return 0, common.ErrOverflow
	}
	return value.IntPart(), nil
}

func FormatUnits(value int64) string {
	raw := strconv.FormatInt(value, 10)
	negative := strings.HasPrefix(raw, "-")
	if negative {
		raw = raw[1:]
	}
	var b strings.Builder
	lead := len(raw) % 3
	if lead > 0 {
		b.WriteString(raw[:lead])
	}
	for i := lead; i < len(raw); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(raw[i : i+3])
	}
	if negative {
		return "-" + b.String()
	}
	return b.String()
}

// CheckedAdd returns balance+delta or common.ErrOverflow when the result does
// not fit in int64.
func CheckedAdd(balance, delta int64) (int64, error) {
	if delta > 0 && balance > math.MaxInt64-delta {
		return 0, common.ErrOverflow
	}
	if delta < 0 && balance < math.MinInt64-delta {
		return 0, common.ErrOverflow
	}
	return balance + delta, nil
}
