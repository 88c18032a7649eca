// Package quote turns catalog rows into what a customer sees: cleaned
// standard features, optional upgrades grouped by category, and a running
// total for the upgrades a user picks.
package quote

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/machinequote/internal/catalog"
)

// Category is one of the fixed buckets upgrades are grouped into.
type Category string

const (
	CategorySpindle Category = "Spindle Options"
	CategoryProbing Category = "Probing & Measurement"
	CategoryCoolant Category = "Coolant Systems"
	CategoryTable   Category = "Table & Pallet Systems"
	CategoryTools   Category = "Tool Storage"
	CategoryControl Category = "Control Options"
	CategoryOther   Category = "Other Options"
)

// Categories lists every category in rule order.
var Categories = []Category{
	CategorySpindle,
	CategoryProbing,
	CategoryCoolant,
	CategoryTable,
	CategoryTools,
	CategoryControl,
	CategoryOther,
}

// basePriceThreshold and basePriceMaxWords drive the "bare price row" rule of
// ExtractBasePrice.
var basePriceThreshold = decimal.NewFromInt(100000)

const basePriceMaxWords = 3

// nanWord matches "nan" between Unicode word boundaries. The neighbouring
// runes are captured so they can be put back.
var nanWord = regexp.MustCompile(`(^|[^\p{L}\p{N}_])nan([^\p{L}\p{N}_]|$)`)

// Option is a cleaned optional upgrade. ID is the row's position in the
// machine's catalog list and identifies the option within a session.
type Option struct {
	ID          int
	Description string
	Price       decimal.Decimal
	Code        string
}

// Group is a category and its options in catalog order.
type Group struct {
	Category Category
	Options  []Option
}

// ValidationError reports an optional upgrade whose price is not a number.
type ValidationError struct {
	Index       int
	Description string
	Price       string
	Err         error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("optional option %d (%q): invalid price %q: %v", e.Index, e.Description, e.Price, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

var errEmptyPrice = errors.New("price is empty")

type rule struct {
	category Category
	match    func(desc string) bool
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// rules are checked in order; the first match wins.
var rules = []rule{
	{CategorySpindle, func(s string) bool { return strings.Contains(s, "spindle") }},
	{CategoryProbing, func(s string) bool { return containsAny(s, "probe", "renishaw") }},
	{CategoryCoolant, func(s string) bool { return strings.Contains(s, "coolant") }},
	{CategoryTable, func(s string) bool { return containsAny(s, "table", "pallet") }},
	{CategoryTools, func(s string) bool {
		return strings.Contains(s, "tool") && containsAny(s, "storage", "magazine", "changer")
	}},
	{CategoryControl, func(s string) bool { return strings.Contains(s, "control") }},
}

// CategoryOf returns the category for an option description.
func CategoryOf(description string) Category {
	desc := strings.ToLower(description)
	for _, r := range rules {
		if r.match(desc) {
			return r.category
		}
	}
	return CategoryOther
}

// CleanDescription removes whole-word "nan" tokens and trims whitespace.
func CleanDescription(s string) string {
	// Adjacent tokens share a boundary rune, so one pass can miss the second.
	for {
		next := nanWord.ReplaceAllString(s, "${1}${2}")
		if next == s {
			return strings.TrimSpace(s)
		}
		s = next
	}
}

// CleanOptions cleans descriptions, drops rows left empty and parses prices.
// A non-numeric price on a kept row fails with *ValidationError.
func CleanOptions(raw []catalog.Option) ([]Option, error) {
	out := make([]Option, 0, len(raw))
	for i, r := range raw {
		desc := CleanDescription(r.Description)
		if desc == "" {
			continue
		}

		price, err := parsePrice(r.Price)
		if err != nil {
			return nil, &ValidationError{Index: i, Description: desc, Price: r.Price, Err: err}
		}

		out = append(out, Option{
			ID:          i,
			Description: desc,
			Price:       price,
			Code:        strings.TrimSpace(r.Code),
		})
	}
	return out, nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, errEmptyPrice
	}
	return decimal.NewFromString(raw)
}

// ExtractBasePrice checks whether the first option restates the machine's
// base price. It does when its description mentions "base price" or "model",
// or when its price exceeds 100,000 and the description has fewer than three
// words. On a match the price is returned and the row is removed; otherwise
// the returned price is zero and opts is returned unchanged.
func ExtractBasePrice(opts []Option) (decimal.Decimal, []Option) {
	if len(opts) == 0 {
		return decimal.Zero, opts
	}

	first := opts[0]
	desc := strings.ToLower(first.Description)
	bare := first.Price.GreaterThan(basePriceThreshold) && len(strings.Fields(first.Description)) < basePriceMaxWords
	if strings.Contains(desc, "base price") || strings.Contains(desc, "model") || bare {
		return first.Price, opts[1:]
	}
	return decimal.Zero, opts
}

// GroupOptions assigns each option to a category. Groups appear in the order
// their first member appears in opts and empty categories are omitted.
func GroupOptions(opts []Option) []Group {
	groups := make([]Group, 0)
	index := make(map[Category]int)

	for _, o := range opts {
		cat := CategoryOf(o.Description)
		i, ok := index[cat]
		if !ok {
			i = len(groups)
			index[cat] = i
			groups = append(groups, Group{Category: cat})
		}
		groups[i].Options = append(groups[i].Options, o)
	}
	return groups
}

// Classify runs cleanup, base-price extraction and grouping over a machine's
// raw optional rows.
func Classify(raw []catalog.Option) ([]Group, decimal.Decimal, error) {
	opts, err := CleanOptions(raw)
	if err != nil {
		return nil, decimal.Zero, err
	}
	basePrice, rest := ExtractBasePrice(opts)
	return GroupOptions(rest), basePrice, nil
}

// Regroup re-runs cleanup and grouping over already classified options, the
// way the document groups the upgrades a user selected. Extraction is not
// repeated, so a selected upgrade is never mistaken for a base price row.
func Regroup(opts []Option) []Group {
	cleaned := make([]Option, 0, len(opts))
	for _, o := range opts {
		o.Description = CleanDescription(o.Description)
		if o.Description == "" {
			continue
		}
		cleaned = append(cleaned, o)
	}
	return GroupOptions(cleaned)
}

// Flatten lists the options of groups in group order.
func Flatten(groups []Group) []Option {
	var out []Option
	for _, g := range groups {
		out = append(out, g.Options...)
	}
	return out
}
