package quote

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/machinequote/internal/catalog"
	"github.com/Simplici0/machinequote/internal/pricing"
)

// CustomerPlaceholder stands in for a blank customer name on documents.
const CustomerPlaceholder = "[Customer Name]"

// ErrUnknownOption is returned when toggling an option ID the machine does not offer.
var ErrUnknownOption = errors.New("unknown option")

// Session is the state of one quote being built: a machine, a discount and
// the upgrades toggled on. It is not safe for concurrent use.
type Session struct {
	CustomerName string

	machine   catalog.Machine
	standard  []string
	groups    []Group
	options   map[int]Option
	extracted decimal.Decimal
	basePrice decimal.Decimal

	discount pricing.Discount
	amount   decimal.Decimal
	selected map[int]struct{}
	total    decimal.Decimal
}

// NewSession classifies m's options and starts a quote at the effective base
// price less the catalog default discount.
func NewSession(m catalog.Machine) (*Session, error) {
	groups, extracted, err := Classify(m.OptionalOptions)
	if err != nil {
		return nil, fmt.Errorf("machine %q: %w", m.Name, err)
	}

	s := &Session{
		machine:   m,
		standard:  SanitizeStandardOptions(m.StandardOptions),
		groups:    groups,
		options:   make(map[int]Option),
		extracted: extracted,
		basePrice: pricing.EffectiveBasePrice(m.BasePrice, extracted),
		selected:  make(map[int]struct{}),
	}
	for _, o := range Flatten(groups) {
		s.options[o.ID] = o
	}
	s.ApplyDiscount(pricing.Discount{Mode: pricing.ModeDefault})

	return s, nil
}

// Machine returns the machine being quoted.
func (s *Session) Machine() catalog.Machine { return s.machine }

// StandardOptions returns the sanitized included features.
func (s *Session) StandardOptions() []string { return s.standard }

// Groups returns the optional upgrades grouped by category.
func (s *Session) Groups() []Group { return s.groups }

// BasePrice is the effective base price.
func (s *Session) BasePrice() decimal.Decimal { return s.basePrice }

// ExtractedBasePrice is the price taken from a base price row, or zero.
func (s *Session) ExtractedBasePrice() decimal.Decimal { return s.extracted }

// Discount returns the discount choice and its amount.
func (s *Session) Discount() (pricing.Discount, decimal.Decimal) { return s.discount, s.amount }

// Total is the running total.
func (s *Session) Total() decimal.Decimal { return s.total }

// DisplayCustomerName returns the customer name or a placeholder when blank.
func (s *Session) DisplayCustomerName() string {
	if name := strings.TrimSpace(s.CustomerName); name != "" {
		return name
	}
	return CustomerPlaceholder
}

// ApplyDiscount replaces the discount and restarts the running total from
// base - discount plus the upgrades currently on.
func (s *Session) ApplyDiscount(d pricing.Discount) {
	s.discount = d
	s.amount = d.Amount(s.basePrice, s.machine.DefaultDiscount)

	total := s.basePrice.Sub(s.amount)
	for id := range s.selected {
		total = total.Add(s.options[id].Price)
	}
	s.total = total
}

// Toggle turns an upgrade on or off. Turning on adds its price to the running
// total, turning off subtracts it; repeating the current state is a no-op.
func (s *Session) Toggle(id int, on bool) error {
	opt, ok := s.options[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownOption, id)
	}

	_, selected := s.selected[id]
	switch {
	case on && !selected:
		s.selected[id] = struct{}{}
		s.total = s.total.Add(opt.Price)
	case !on && selected:
		delete(s.selected, id)
		s.total = s.total.Sub(opt.Price)
	}
	return nil
}

// IsSelected reports whether an upgrade is on.
func (s *Session) IsSelected(id int) bool {
	_, ok := s.selected[id]
	return ok
}

// Selected returns the upgrades that are on, in catalog order.
func (s *Session) Selected() []Option {
	ids := make([]int, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]Option, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.options[id])
	}
	return out
}

// Result prices the session from scratch. Its total always equals Total.
func (s *Session) Result() pricing.Result {
	selected := s.Selected()
	addons := make([]decimal.Decimal, 0, len(selected))
	for _, o := range selected {
		addons = append(addons, o.Price)
	}
	return pricing.Calculate(pricing.Input{
		CatalogBasePrice:   s.machine.BasePrice,
		ExtractedBasePrice: s.extracted,
		DefaultDiscount:    s.machine.DefaultDiscount,
		Discount:           s.discount,
		Addons:             addons,
	})
}

// UploadKey is the image key used for an option's uploads: its code, or
// "<category>_<index in group>" when the catalog gives none.
func UploadKey(g Group, index int) string {
	if code := g.Options[index].Code; code != "" {
		return code
	}
	return fmt.Sprintf("%s_%d", g.Category, index)
}
