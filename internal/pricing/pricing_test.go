package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func set(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(d(v))
}

func equalDecimal(t *testing.T, name string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Fatalf("%s = %s, want %s", name, got, want)
	}
}

func TestDiscountAmount_Modes(t *testing.T) {
	base := d("100000")
	def := d("2500")

	equalDecimal(t, "target", Discount{Mode: ModeTargetPrice, Value: d("90000")}.Amount(base, def), d("10000"))
	equalDecimal(t, "target above base", Discount{Mode: ModeTargetPrice, Value: d("120000")}.Amount(base, def), decimal.Zero)
	equalDecimal(t, "percent", Discount{Mode: ModePercent, Value: d("12.5")}.Amount(base, def), d("12500"))
	equalDecimal(t, "flat", Discount{Mode: ModeFlat, Value: d("5000")}.Amount(base, def), d("5000"))
	equalDecimal(t, "explicit zero flat", Discount{Mode: ModeFlat}.Amount(base, def), decimal.Zero)
	equalDecimal(t, "default", Discount{}.Amount(base, def), def)
}

func TestResolve_Precedence(t *testing.T) {
	all := Inputs{TargetPrice: set("90000"), Percent: set("10"), Flat: set("5000")}
	got := Resolve(all)
	assert.Equal(t, ModeTargetPrice, got.Mode)
	equalDecimal(t, "all set discount", got.Amount(d("100000"), d("1")), d("10000"))

	// A nonzero percent overrides flat even when flat is larger.
	got = Resolve(Inputs{Percent: set("1"), Flat: set("50000")})
	assert.Equal(t, ModePercent, got.Mode)

	// Zero values do not count as set.
	got = Resolve(Inputs{TargetPrice: set("0"), Percent: set("0"), Flat: set("750")})
	assert.Equal(t, ModeFlat, got.Mode)
	equalDecimal(t, "flat value", got.Value, d("750"))

	assert.Equal(t, Discount{Mode: ModeDefault}, Resolve(Inputs{}))
}

func TestParseInputs_RejectsAndFallsBack(t *testing.T) {
	in, err := ParseInputs(RawInputs{TargetPrice: "-5", Percent: "150", Flat: "abc"})
	require.Error(t, err)

	var fieldErr *FieldError
	require.True(t, errors.As(err, &fieldErr))
	assert.False(t, in.TargetPrice.Valid)
	assert.False(t, in.Percent.Valid)
	assert.False(t, in.Flat.Valid)
	assert.Equal(t, ModeDefault, Resolve(in).Mode)

	for _, msg := range []string{"target_price", "percent", "flat"} {
		assert.Contains(t, err.Error(), msg)
	}
}

func TestParseInputs_AcceptsValidAndBlank(t *testing.T) {
	in, err := ParseInputs(RawInputs{TargetPrice: " ", Percent: "10", Flat: "1,500.50"})
	require.NoError(t, err)

	assert.False(t, in.TargetPrice.Valid)
	require.True(t, in.Percent.Valid)
	equalDecimal(t, "percent", in.Percent.Decimal, d("10"))
	require.True(t, in.Flat.Valid)
	equalDecimal(t, "flat", in.Flat.Decimal, d("1500.5"))
}

func TestParseInputs_KeepsValidFieldsWhenOthersFail(t *testing.T) {
	in, err := ParseInputs(RawInputs{TargetPrice: "x", Flat: "2000"})
	require.Error(t, err)

	got := Resolve(in)
	assert.Equal(t, ModeFlat, got.Mode)
}

func TestEffectiveBasePrice(t *testing.T) {
	equalDecimal(t, "extracted", EffectiveBasePrice(d("100"), d("150")), d("150"))
	equalDecimal(t, "no extraction", EffectiveBasePrice(d("100"), decimal.Zero), d("100"))
}

func TestCalculate_RunningTotal(t *testing.T) {
	result := Calculate(Input{
		CatalogBasePrice: d("100000"),
		Discount:         Discount{Mode: ModeFlat, Value: d("10000")},
		Addons:           []decimal.Decimal{d("5000"), d("3000")},
	})

	equalDecimal(t, "base", result.Breakdown.BasePrice, d("100000"))
	equalDecimal(t, "discount", result.Breakdown.Discount, d("10000"))
	equalDecimal(t, "addons", result.Breakdown.Addons, d("8000"))
	equalDecimal(t, "total", result.Totals.Total, d("98000"))
}

func TestCalculate_NoFloor(t *testing.T) {
	result := Calculate(Input{
		CatalogBasePrice: d("1000"),
		Discount:         Discount{Mode: ModeFlat, Value: d("2500")},
	})
	equalDecimal(t, "total", result.Totals.Total, d("-1500"))
}

func TestCalculate_UsesExtractedBaseAndDefaultDiscount(t *testing.T) {
	result := Calculate(Input{
		CatalogBasePrice:   d("100000"),
		ExtractedBasePrice: d("150000"),
		DefaultDiscount:    d("7500"),
	})
	assert.Equal(t, ModeDefault, result.Breakdown.Mode)
	equalDecimal(t, "total", result.Totals.Total, d("142500"))
}

func TestParseMode(t *testing.T) {
	for _, m := range Precedence {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMode("bogus")
	assert.Error(t, err)
}
