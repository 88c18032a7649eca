package quote

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/machinequote/internal/catalog"
	"github.com/Simplici0/machinequote/internal/pricing"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func testMachine() catalog.Machine {
	return catalog.Machine{
		Name:            "HU63A",
		BasePrice:       dec("100000"),
		DefaultDiscount: dec("2500"),
		StandardOptions: []string{"Spindle motor", "nan", "  ", "Coolant nan system"},
		OptionalOptions: []catalog.Option{
			{Description: "Spindle 20k", Price: "5000", Code: "SP20"},
			{Description: "Renishaw probe", Price: "3000"},
			{Description: "Chip conveyor", Price: "1200"},
		},
	}
}

func assertInvariant(t *testing.T, s *Session) {
	t.Helper()
	want := s.Result().Totals.Total
	if !s.Total().Equal(want) {
		t.Fatalf("running total %s != recomputed %s", s.Total(), want)
	}
}

func TestSession_RunningTotal(t *testing.T) {
	s, err := NewSession(testMachine())
	require.NoError(t, err)

	s.ApplyDiscount(pricing.Discount{Mode: pricing.ModeFlat, Value: dec("10000")})
	assert.True(t, s.Total().Equal(dec("90000")))

	require.NoError(t, s.Toggle(0, true))
	require.NoError(t, s.Toggle(1, true))
	assert.True(t, s.Total().Equal(dec("98000")), s.Total().String())
	assertInvariant(t, s)

	require.NoError(t, s.Toggle(0, false))
	assert.True(t, s.Total().Equal(dec("93000")), s.Total().String())
	assertInvariant(t, s)

	// Repeating the current state does not double count.
	require.NoError(t, s.Toggle(1, true))
	require.NoError(t, s.Toggle(0, false))
	assert.True(t, s.Total().Equal(dec("93000")))
}

func TestSession_DefaultDiscountAndSanitizedStandardOptions(t *testing.T) {
	s, err := NewSession(testMachine())
	require.NoError(t, err)

	d, amount := s.Discount()
	assert.Equal(t, pricing.ModeDefault, d.Mode)
	assert.True(t, amount.Equal(dec("2500")))
	assert.True(t, s.Total().Equal(dec("97500")))
	assert.Equal(t, []string{"Spindle motor", "Coolant  system"}, s.StandardOptions())
}

func TestSession_ApplyDiscountKeepsSelection(t *testing.T) {
	s, err := NewSession(testMachine())
	require.NoError(t, err)

	require.NoError(t, s.Toggle(2, true))
	s.ApplyDiscount(pricing.Discount{Mode: pricing.ModePercent, Value: dec("10")})

	assert.True(t, s.Total().Equal(dec("91200")), s.Total().String())
	assert.True(t, s.IsSelected(2))
	assertInvariant(t, s)
}

func TestSession_UsesExtractedBasePrice(t *testing.T) {
	m := testMachine()
	m.OptionalOptions = append([]catalog.Option{{Description: "Model HU63A base price", Price: "150000"}}, m.OptionalOptions...)

	s, err := NewSession(m)
	require.NoError(t, err)

	assert.True(t, s.BasePrice().Equal(dec("150000")))
	assert.True(t, s.ExtractedBasePrice().Equal(dec("150000")))
	assert.Len(t, Flatten(s.Groups()), 3)
	assert.ErrorIs(t, s.Toggle(0, true), ErrUnknownOption)
	require.NoError(t, s.Toggle(1, true))
	assert.True(t, s.Total().Equal(dec("152500")))
}

func TestSession_UnknownOption(t *testing.T) {
	s, err := NewSession(testMachine())
	require.NoError(t, err)

	err = s.Toggle(42, true)
	assert.True(t, errors.Is(err, ErrUnknownOption))
	assertInvariant(t, s)
}

func TestSession_InvalidPriceAbortsMachine(t *testing.T) {
	m := testMachine()
	m.OptionalOptions[2].Price = "call us"

	_, err := NewSession(m)
	require.Error(t, err)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, err.Error(), `machine "HU63A"`)
}

func TestSession_SelectedInCatalogOrder(t *testing.T) {
	s, err := NewSession(testMachine())
	require.NoError(t, err)

	require.NoError(t, s.Toggle(2, true))
	require.NoError(t, s.Toggle(0, true))

	sel := s.Selected()
	require.Len(t, sel, 2)
	assert.Equal(t, 0, sel[0].ID)
	assert.Equal(t, 2, sel[1].ID)
}

func TestSession_DisplayCustomerName(t *testing.T) {
	s, err := NewSession(testMachine())
	require.NoError(t, err)

	assert.Equal(t, CustomerPlaceholder, s.DisplayCustomerName())
	s.CustomerName = "  Acme Aerospace "
	assert.Equal(t, "Acme Aerospace", s.DisplayCustomerName())
}

func TestUploadKey(t *testing.T) {
	g := Group{Category: CategoryProbing, Options: []Option{{Code: "OMP60"}, {}}}
	assert.Equal(t, "OMP60", UploadKey(g, 0))
	assert.Equal(t, "Probing & Measurement_1", UploadKey(g, 1))
}
