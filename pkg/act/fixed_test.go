package act

import "testing"

func TestPriceFromStringAndToStr(t *testing.T) {
	p := PriceFromString("-1.23")
	if got := p.ToDex(); got != -12_300_000 {
		t.Fatalf("ToDex() = %d, want -12300000", got)
	}
	if got := p.ToStr(2); got != "-1.23" {
		t.Errorf("ToStr(2) = %q, want -1.23", got)
	}
	if got := p.ToStr(7); got != "-1.2300000" {
		t.Errorf("ToStr(7) = %q, want -1.2300000", got)
	}
}

func TestPriceToStrZeroDecimalsRoundsUp(t *testing.T) {
	p := PriceFromValueAndPrecision(15_000_000, 7)
	if got := p.ToStr(0); got != "2" {
		t.Errorf("ToStr(0) = %q, want 2", got)
	}
}

func TestPriceToStrRoundingCarriesIntoIntPart(t *testing.T) {
	p := PriceFromValueAndPrecision(19_500_000, 7) // 1.95
	if got := p.ToStr(1); got != "2.0" {
		t.Errorf("ToStr(1) = %q, want 2.0 (rounding overflow carries into the integer part)", got)
	}
}

func TestPriceStringRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		v int64
		p int
	}{
		{0, 0},
		{-5, 1},
		{12345, 3},
		{-9_999_999, 7},
		{1, 7},
		{150, 2},
	} {
		orig := PriceFromValueAndPrecision(tc.v, tc.p)
		back := PriceFromString(orig.ToStr(tc.p))
		if back.ToDex() != orig.ToDex() {
			t.Errorf("round trip (%d, %d): %q parses to %d, want %d", tc.v, tc.p, orig.ToStr(tc.p), back.ToDex(), orig.ToDex())
		}
	}
}

func TestPriceInvalid(t *testing.T) {
	p := InvalidDexPrice()
	if p.IsValid() {
		t.Errorf("InvalidDexPrice().IsValid() = true")
	}
	if got := p.ToStr(2); got != "INVALID" {
		t.Errorf("ToStr on invalid = %q, want INVALID", got)
	}
	if got := PriceFromString("12x3"); got.IsValid() {
		t.Errorf("PriceFromString on malformed input should be invalid, got %v", got)
	}
}

func TestPriceFromValueAndPrecisionOutOfRange(t *testing.T) {
	p := PriceFromValueAndPrecision(100, 9)
	if p.IsValid() {
		t.Errorf("precision outside [0,7] should yield invalid")
	}
}

func TestQuantityFromDexStripTrailingZeros(t *testing.T) {
	q := QuantityFromDex(120_000_000)
	if got := q.ToStr(-1); got != "1.2" {
		t.Errorf("ToStr(-1) = %q, want 1.2", got)
	}
}

func TestQuantityZeroStripsToZero(t *testing.T) {
	q := ZeroDexQuantity()
	if got := q.ToStr(-1); got != "0" {
		t.Errorf("ToStr(-1) on zero = %q, want 0", got)
	}
}

func TestQuantityToStrTruncatesWithoutRounding(t *testing.T) {
	q := QuantityFromDex(199_999_999) // 1.99999999
	if got := q.ToStr(2); got != "1.99" {
		t.Errorf("ToStr(2) = %q, want 1.99 (truncated, not rounded)", got)
	}
}

func TestQuantityFromValueAndPrecisionOutOfRange(t *testing.T) {
	q := QuantityFromValueAndPrecision(100, 9)
	if q.ToDex() != 0 {
		t.Errorf("precision outside [0,8] should yield zero, got %v", q.ToDex())
	}
}
