package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Mode selects how a discount is computed. The zero Mode is ModeDefault.
type Mode int

const (
	ModeDefault Mode = iota
	ModeTargetPrice
	ModePercent
	ModeFlat
)

// Precedence lists the user-selectable modes from strongest to weakest.
var Precedence = []Mode{ModeTargetPrice, ModePercent, ModeFlat, ModeDefault}

func (m Mode) String() string {
	switch m {
	case ModeTargetPrice:
		return "target-price"
	case ModePercent:
		return "percent"
	case ModeFlat:
		return "flat"
	case ModeDefault:
		return "default"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts the names returned by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "target-price", "target":
		return ModeTargetPrice, nil
	case "percent":
		return ModePercent, nil
	case "flat":
		return ModeFlat, nil
	case "default", "":
		return ModeDefault, nil
	}
	return ModeDefault, fmt.Errorf("unknown discount mode %q", s)
}

// Discount is an explicit discount choice.
type Discount struct {
	Mode  Mode
	Value decimal.Decimal
}

// Amount returns the discount in currency for basePrice.
func (d Discount) Amount(basePrice, catalogDefault decimal.Decimal) decimal.Decimal {
	switch d.Mode {
	case ModeTargetPrice:
		return decimal.Max(decimal.Zero, basePrice.Sub(d.Value))
	case ModePercent:
		return d.Value.Div(hundred).Mul(basePrice)
	case ModeFlat:
		return d.Value
	default:
		return catalogDefault
	}
}

// Inputs are the three optional discount fields a user can fill at once.
type Inputs struct {
	TargetPrice decimal.NullDecimal
	Percent     decimal.NullDecimal
	Flat        decimal.NullDecimal
}

// Resolve picks the discount that applies to in. The first positive input in
// precedence order wins (target price, percent, flat); with none the catalog
// default applies. A nonzero percent therefore overrides a flat amount.
func Resolve(in Inputs) Discount {
	for _, mode := range Precedence {
		value := in.field(mode)
		if value.Valid && value.Decimal.IsPositive() {
			return Discount{Mode: mode, Value: value.Decimal}
		}
	}
	return Discount{Mode: ModeDefault}
}

func (in Inputs) field(m Mode) decimal.NullDecimal {
	switch m {
	case ModeTargetPrice:
		return in.TargetPrice
	case ModePercent:
		return in.Percent
	case ModeFlat:
		return in.Flat
	default:
		return decimal.NullDecimal{}
	}
}

// RawInputs are discount fields as typed by a user.
type RawInputs struct {
	TargetPrice string
	Percent     string
	Flat        string
}

// FieldError reports a rejected discount field.
type FieldError struct {
	Field string
	Value string
	Msg   string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Msg)
}

// ParseInputs validates raw discount fields. Blank fields are unset. Fields
// that are non-numeric, negative, or (for percent) above 100 are rejected:
// they stay unset and are reported in the returned error, so callers can fall
// back to the catalog default instead of failing.
func ParseInputs(raw RawInputs) (Inputs, error) {
	var in Inputs
	var errs []error

	var err error
	if in.TargetPrice, err = parseNonNegative("target_price", raw.TargetPrice); err != nil {
		errs = append(errs, err)
	}
	if in.Percent, err = parsePercent("percent", raw.Percent); err != nil {
		errs = append(errs, err)
	}
	if in.Flat, err = parseNonNegative("flat", raw.Flat); err != nil {
		errs = append(errs, err)
	}

	return in, errors.Join(errs...)
}

func parseNonNegative(field, raw string) (decimal.NullDecimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	value, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return decimal.NullDecimal{}, &FieldError{Field: field, Value: raw, Msg: "must be numeric"}
	}
	if value.IsNegative() {
		return decimal.NullDecimal{}, &FieldError{Field: field, Value: raw, Msg: "must be greater than or equal to 0"}
	}
	return decimal.NewNullDecimal(value), nil
}

func parsePercent(field, raw string) (decimal.NullDecimal, error) {
	value, err := parseNonNegative(field, raw)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	if value.Valid && value.Decimal.GreaterThan(hundred) {
		return decimal.NullDecimal{}, &FieldError{Field: field, Value: strings.TrimSpace(raw), Msg: "must be between 0 and 100"}
	}
	return value, nil
}

// EffectiveBasePrice is the extracted base price when extraction found a
// positive one, otherwise the catalog's configured base price.
func EffectiveBasePrice(catalogBase, extracted decimal.Decimal) decimal.Decimal {
	if extracted.IsPositive() {
		return extracted
	}
	return catalogBase
}

// Input holds everything needed to price one quote.
type Input struct {
	CatalogBasePrice   decimal.Decimal
	ExtractedBasePrice decimal.Decimal
	DefaultDiscount    decimal.Decimal
	Discount           Discount
	Addons             []decimal.Decimal
}

// Breakdown contains the line items of a quote.
type Breakdown struct {
	BasePrice decimal.Decimal
	Mode      Mode
	Discount  decimal.Decimal
	Addons    decimal.Decimal
}

// Totals contains roll-up values.
type Totals struct {
	Total decimal.Decimal
}

// Result groups the full pricing output.
type Result struct {
	Breakdown Breakdown
	Totals    Totals
}

// Calculate prices a quote. The total is base - discount + addons with no floor.
func Calculate(in Input) Result {
	base := EffectiveBasePrice(in.CatalogBasePrice, in.ExtractedBasePrice)
	discount := in.Discount.Amount(base, in.DefaultDiscount)
	addons := decimal.Sum(decimal.Zero, in.Addons...)

	return Result{
		Breakdown: Breakdown{
			BasePrice: base,
			Mode:      in.Discount.Mode,
			Discount:  discount,
			Addons:    addons,
		},
		Totals: Totals{Total: base.Sub(discount).Add(addons)},
	}
}
