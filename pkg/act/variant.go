package act

import (
	"strconv"

	"github.com/sumitelequin/actgo/pkg/actwire"
)

// VariantToDexPrice coerces a cell's variant value to a DexPrice,
// trying varPrice, then varDouble, then varQuantity, then varInt, in
// that order; a nil value or one with none of those fields set
// yields the invalid sentinel.
func VariantToDexPrice(v *actwire.VariantValue) DexPrice {
	if v == nil {
		return InvalidDexPrice()
	}
	if v.VarPrice != nil {
		return PriceFromDex(*v.VarPrice)
	}
	if v.VarDouble != nil {
		return PriceFromFloat(*v.VarDouble)
	}
	if v.VarQuantity != nil {
		return PriceFromFloat(QuantityFromDex(*v.VarQuantity).ToFloat())
	}
	if v.VarInt != nil {
		return PriceFromFloat(float64(*v.VarInt))
	}
	return InvalidDexPrice()
}

// VariantToDexQuantity coerces a cell's variant value to a
// DexQuantity, trying varQuantity, then varDouble, then varInt, in
// that order; a nil value or unset fields fall back to zero.
func VariantToDexQuantity(v *actwire.VariantValue) DexQuantity {
	if v == nil {
		return ZeroDexQuantity()
	}
	if v.VarQuantity != nil {
		return QuantityFromDex(*v.VarQuantity)
	}
	if v.VarDouble != nil {
		return QuantityFromFloat(*v.VarDouble)
	}
	if v.VarInt != nil {
		return QuantityFromFloat(float64(*v.VarInt))
	}
	return ZeroDexQuantity()
}

// VariantToInt coerces a cell's variant value to an int, truncating
// toward zero, in the order varQuantity, varInt, varDouble, varPrice.
func VariantToInt(v *actwire.VariantValue) int {
	if v == nil {
		return 0
	}
	if v.VarQuantity != nil {
		return int(QuantityFromDex(*v.VarQuantity).ToFloat())
	}
	if v.VarInt != nil {
		return int(*v.VarInt)
	}
	if v.VarDouble != nil {
		return int(*v.VarDouble)
	}
	if v.VarPrice != nil {
		return int(PriceFromDex(*v.VarPrice).ToFloat())
	}
	return 0
}

// StrToVariantValue parses inp into a VariantValue shaped by typ,
// the codec used when emitting a cell from CSV text.
func StrToVariantValue(inp string, typ actwire.VariantType) actwire.VariantValue {
	var v actwire.VariantValue
	switch typ {
	case actwire.VarDouble:
		d, err := strconv.ParseFloat(inp, 64)
		if err != nil {
			d = 0
		}
		v.VarDouble = &d
	case actwire.VarInt32:
		i, err := strconv.ParseInt(inp, 10, 32)
		if err != nil {
			i = 0
		}
		i32 := int32(i)
		v.VarInt = &i32
	case actwire.VarPrice:
		p := PriceFromString(inp)
		if p.IsValid() {
			raw := p.ToDex()
			v.VarPrice = &raw
		}
	case actwire.VarString:
		s := inp
		v.VarString = &s
	case actwire.VarQuantity:
		q := QuantityFromString(inp)
		raw := q.ToDex()
		v.VarQuantity = &raw
	}
	return v
}

// guessVariantString renders v without knowing its column's declared
// type, picking whichever variant field is set. DexCell.String falls
// back to this when no custom stringer is set.
func guessVariantString(v *actwire.VariantValue) string {
	switch {
	case v == nil:
		return ""
	case v.VarString != nil:
		return *v.VarString
	case v.VarPrice != nil:
		return PriceFromDex(*v.VarPrice).String()
	case v.VarQuantity != nil:
		return QuantityFromDex(*v.VarQuantity).String()
	case v.VarInt != nil:
		return strconv.FormatInt(int64(*v.VarInt), 10)
	case v.VarDouble != nil:
		return PriceFromFloat(*v.VarDouble).String()
	}
	return ""
}

// variantValueToStrFunc renders one cell's value (and, for vector
// cells, its vector) to text, given the column's declared type. The
// function is chosen once per column.
type variantValueToStrFunc func(v *actwire.VariantValue, vec []actwire.VariantValue) string

// getVariantValueToStrFunc returns the text codec for a column of
// the given variant type.
func getVariantValueToStrFunc(typ actwire.VariantType) variantValueToStrFunc {
	switch typ {
	case actwire.VarString:
		return func(v *actwire.VariantValue, _ []actwire.VariantValue) string {
			if v != nil && v.VarString != nil {
				return *v.VarString
			}
			return ""
		}
	case actwire.VarDouble:
		return func(v *actwire.VariantValue, _ []actwire.VariantValue) string {
			if v != nil && v.VarDouble != nil {
				return PriceFromFloat(*v.VarDouble).String()
			}
			return ""
		}
	case actwire.VarInt32:
		return func(v *actwire.VariantValue, _ []actwire.VariantValue) string {
			if v == nil {
				return ""
			}
			if v.VarQuantity != nil {
				return QuantityFromDex(*v.VarQuantity).String()
			}
			if v.VarInt != nil {
				return strconv.FormatInt(int64(*v.VarInt), 10)
			}
			return ""
		}
	case actwire.VarPrice:
		return func(v *actwire.VariantValue, _ []actwire.VariantValue) string {
			return VariantToDexPrice(v).String()
		}
	default:
		return func(*actwire.VariantValue, []actwire.VariantValue) string { return "" }
	}
}
