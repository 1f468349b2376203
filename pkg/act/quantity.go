package act

import (
	"fmt"
	"strconv"
	"strings"
)

// quantityScalingFactor is DexQuantity's fixed-point scale: 8 decimal
// digits.
const quantityScalingFactor = 100_000_000

// QuantityPrecision is the number of decimal digits a DexQuantity's
// raw value carries.
const QuantityPrecision = 8

var quantityDivisors = [9]int64{100_000_000, 10_000_000, 1_000_000, 100_000, 10_000, 1_000, 100, 10, 1}

// DexQuantity is a fixed-point quantity with 8 decimal digits of
// scale. Unlike DexPrice it has no invalid sentinel: the zero value
// is simply zero.
type DexQuantity struct {
	value int64
}

// ZeroDexQuantity returns the zero-valued DexQuantity; DexQuantity{}
// is equivalent.
func ZeroDexQuantity() DexQuantity { return DexQuantity{} }

// ToFloat returns q as a float64.
func (q DexQuantity) ToFloat() float64 { return float64(q.value) / quantityScalingFactor }

// ToDex returns the raw, precision-8 scaled integer value.
func (q DexQuantity) ToDex() int64 { return q.value }

// QuantityFromFloat builds a DexQuantity by scaling v to precision-8
// raw integer units.
func QuantityFromFloat(v float64) DexQuantity {
	return DexQuantity{value: int64(v * quantityScalingFactor)}
}

// QuantityFromDex builds a DexQuantity from an already precision-8
// scaled raw integer.
func QuantityFromDex(v int64) DexQuantity {
	return QuantityFromValueAndPrecision(v, QuantityPrecision)
}

// QuantityFromValueAndPrecision rescales a raw integer carrying
// `precision` decimal digits to DexQuantity's canonical precision-8
// representation. A precision outside [0, 8] yields zero.
func QuantityFromValueAndPrecision(value int64, precision int) DexQuantity {
	if precision == QuantityPrecision {
		return DexQuantity{value: value}
	}
	if precision < 0 || precision > QuantityPrecision {
		return DexQuantity{}
	}
	return DexQuantity{value: value * quantityDivisors[precision]}
}

func (q DexQuantity) getDecimals() int {
	if q.value < 0 {
		return int(-q.value % quantityScalingFactor)
	}
	return int(q.value % quantityScalingFactor)
}

// String renders q with ToStr(getDecimals()).
func (q DexQuantity) String() string { return q.ToStr(q.getDecimals()) }

// ToStr renders q to numDecimals decimal places. A negative
// numDecimals renders all 8 fractional digits and then strips
// trailing zeros (and an orphan trailing '.'). Otherwise numDecimals
// is clamped to [0, 8] and the fraction is truncated toward zero,
// never rounded.
func (q DexQuantity) ToStr(numDecimals int) string {
	noTrailingZeros := numDecimals < 0
	if noTrailingZeros {
		numDecimals = QuantityPrecision
	} else if numDecimals > QuantityPrecision {
		numDecimals = QuantityPrecision
	} else if numDecimals < 0 {
		numDecimals = 0
	}

	value := q.value
	if value < 0 {
		value = -value
	}
	fraction := value % quantityScalingFactor
	intPart := value / quantityScalingFactor

	var res strings.Builder
	if q.value < 0 {
		res.WriteByte('-')
	}
	if numDecimals > 0 {
		if intPart > 0 {
			res.WriteString(strconv.FormatInt(intPart, 10))
		}
		res.WriteByte('.')
		// Truncate (not round) to the requested width by taking the
		// leading numDecimals digits of the zero-padded 8-digit
		// fraction.
		fracDigits := fmt.Sprintf("%08d", fraction)
		res.WriteString(fracDigits[:numDecimals])
	} else if intPart > 0 {
		res.WriteString(strconv.FormatInt(intPart, 10))
	} else {
		return "0"
	}

	out := res.String()
	if noTrailingZeros {
		if q.value == 0 {
			return "0"
		}
		out = strings.TrimRight(out, "0")
		out = strings.TrimSuffix(out, ".")
	}
	return out
}

// QuantityFromString parses a decimal string using the same
// single-pass scan as PriceFromString, then rescales via
// QuantityFromValueAndPrecision.
func QuantityFromString(s string) DexQuantity {
	var v int64
	var decimals int
	var negative, decimalMode bool
	for _, c := range s {
		switch {
		case c == '-':
			negative = true
		case c >= '0' && c <= '9':
			v = 10*v + int64(c-'0')
			if decimalMode {
				decimals++
			}
		case c == '.':
			decimalMode = true
		default:
			return DexQuantity{}
		}
	}
	if negative {
		v = -v
	}
	return QuantityFromValueAndPrecision(v, decimals)
}
