// Package catalog holds the static machine catalog: base prices, default
// discounts, included features and the raw optional upgrade rows.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Option is an optional upgrade row as it appears in the catalog source.
// Description and Price are kept as raw text; the quote package cleans and
// validates them when a machine is classified.
type Option struct {
	Description string `json:"description"`
	Price       string `json:"price"`
	Code        string `json:"code,omitempty"`
}

// Machine describes one machine model.
type Machine struct {
	Name            string
	BasePrice       decimal.Decimal
	DefaultDiscount decimal.Decimal
	StandardOptions []string
	OptionalOptions []Option
}

// Catalog is an immutable set of machines keyed by name.
type Catalog struct {
	machines map[string]Machine
	names    []string
}

// New builds a Catalog from machines. Names must be unique and non-empty.
func New(machines []Machine) (*Catalog, error) {
	if len(machines) == 0 {
		return nil, errors.New("catalog has no machines")
	}

	c := &Catalog{
		machines: make(map[string]Machine, len(machines)),
		names:    make([]string, 0, len(machines)),
	}
	for _, m := range machines {
		if strings.TrimSpace(m.Name) == "" {
			return nil, errors.New("catalog has a machine with an empty name")
		}
		if _, dup := c.machines[m.Name]; dup {
			return nil, fmt.Errorf("catalog has duplicate machine %q", m.Name)
		}
		c.machines[m.Name] = m.clone()
		c.names = append(c.names, m.Name)
	}
	sort.Strings(c.names)

	return c, nil
}

// Names returns the machine names in sorted order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Machine returns a copy of the named machine.
func (c *Catalog) Machine(name string) (Machine, bool) {
	m, ok := c.machines[name]
	if !ok {
		return Machine{}, false
	}
	return m.clone(), true
}

// Machines returns copies of all machines in name order.
func (c *Catalog) Machines() []Machine {
	out := make([]Machine, 0, len(c.names))
	for _, name := range c.names {
		out = append(out, c.machines[name].clone())
	}
	return out
}

// Len reports the number of machines.
func (c *Catalog) Len() int {
	return len(c.names)
}

func (m Machine) clone() Machine {
	out := m
	out.StandardOptions = append([]string(nil), m.StandardOptions...)
	out.OptionalOptions = append([]Option(nil), m.OptionalOptions...)
	return out
}
