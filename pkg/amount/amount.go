package amount

import (
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const bpsDenominator = 10000

// SanitizeNumeric strips everything except digits and the first decimal
// point. A second decimal point and everything after it is dropped.
func SanitizeNumeric(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	seenPoint := false
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.':
			if seenPoint {
				return b.String()
			}
			seenPoint = true
			b.WriteRune(r)
		}
	}

	return b.String()
}

// ToFixedPointString sanitizes raw and truncates its fractional part to
// decimals digits. Leading zeros of the integer part are dropped and an empty
// fractional part omits the decimal point. Empty input stays empty.
func ToFixedPointString(raw string, decimals int) string {
	sanitized := SanitizeNumeric(raw)
	if sanitized == "" {
		return ""
	}

	whole, frac, _ := strings.Cut(sanitized, ".")
	whole = strings.TrimLeft(whole, "0")
	if whole == "" {
		whole = "0"
	}

	if decimals < 0 {
		decimals = 0
	}
	if len(frac) > decimals {
		frac = frac[:decimals]
	}

	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// ParseToInteger converts a user decimal string into a fixed-point integer
// with the given precision. Invalid or empty input yields zero.
func ParseToInteger(raw string, decimals int) *big.Int {
	fixed := ToFixedPointString(raw, decimals)
	if fixed == "" {
		return new(big.Int)
	}

	d, err := decimal.NewFromString(fixed)
	if err != nil {
		return new(big.Int)
	}

	return d.Shift(int32(decimals)).BigInt()
}

// FormatInteger renders a fixed-point integer as a decimal string
func FormatInteger(value *big.Int, decimals int) string {
	if value == nil {
		return ""
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).String()
}

// FormatDisplay renders value truncated to trailing fractional digits with
// thousands separators, e.g. 1234.5678 -> "1,234.56".
func FormatDisplay(value *big.Int, decimals, trailing int) string {
	if value == nil {
		return ""
	}
	if decimals <= 1 {
		return value.String()
	}

	d := decimal.NewFromBigInt(value, -int32(decimals)).Truncate(int32(trailing))
	return Commafy(d.String())
}

// Commafy inserts thousands separators into the integer part of a decimal string
func Commafy(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := b.String()
	if hasFrac {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// SlippageToBps converts a slippage percentage (0.5 means 0.5%) into basis points
func SlippageToBps(percent float64) float64 {
	return percent * 100
}

// ApplySlippage returns floor(amountOut * (10000 - ceil(toleranceBps)) / 10000).
// The result is not clamped; quoted amounts are never negative.
func ApplySlippage(amountOut *big.Int, toleranceBps float64) *big.Int {
	if amountOut == nil {
		return nil
	}

	minBps := big.NewInt(bpsDenominator - int64(math.Ceil(toleranceBps)))
	out := new(big.Int).Mul(amountOut, minBps)
	return out.Div(out, big.NewInt(bpsDenominator))
}
