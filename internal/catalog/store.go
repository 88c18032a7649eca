package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

// LoadDB reads the catalog snapshot written by seed.Run.
func LoadDB(ctx context.Context, db *sql.DB) (*Catalog, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name, base_price, default_discount
		FROM machines
		ORDER BY name
	`)
	if err != nil {
		return nil, &LoadError{Err: fmt.Errorf("query machines: %w", err)}
	}
	defer rows.Close()

	machines := make([]Machine, 0)
	for rows.Next() {
		var m Machine
		var basePrice, discount string
		if err := rows.Scan(&m.Name, &basePrice, &discount); err != nil {
			return nil, &LoadError{Err: fmt.Errorf("scan machine: %w", err)}
		}
		if m.BasePrice, err = decimal.NewFromString(basePrice); err != nil {
			return nil, &LoadError{Machine: m.Name, Field: "base_price", Err: err}
		}
		if m.DefaultDiscount, err = decimal.NewFromString(discount); err != nil {
			return nil, &LoadError{Machine: m.Name, Field: "discount", Err: err}
		}
		machines = append(machines, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &LoadError{Err: fmt.Errorf("iterate machines: %w", err)}
	}

	for i := range machines {
		if machines[i].StandardOptions, err = listStandardOptions(ctx, db, machines[i].Name); err != nil {
			return nil, &LoadError{Machine: machines[i].Name, Field: "standard_options", Err: err}
		}
		if machines[i].OptionalOptions, err = listOptionalOptions(ctx, db, machines[i].Name); err != nil {
			return nil, &LoadError{Machine: machines[i].Name, Field: "optional_options", Err: err}
		}
	}

	c, err := New(machines)
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	return c, nil
}

func listStandardOptions(ctx context.Context, db *sql.DB, machine string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT text
		FROM standard_options
		WHERE machine_name = ?
		ORDER BY position
	`, machine)
	if err != nil {
		return nil, fmt.Errorf("query standard options: %w", err)
	}
	defer rows.Close()

	opts := make([]string, 0)
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan standard option: %w", err)
		}
		opts = append(opts, text)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate standard options: %w", err)
	}
	return opts, nil
}

func listOptionalOptions(ctx context.Context, db *sql.DB, machine string) ([]Option, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT description, price, code
		FROM optional_options
		WHERE machine_name = ?
		ORDER BY position
	`, machine)
	if err != nil {
		return nil, fmt.Errorf("query optional options: %w", err)
	}
	defer rows.Close()

	opts := make([]Option, 0)
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.Description, &o.Price, &o.Code); err != nil {
			return nil, fmt.Errorf("scan optional option: %w", err)
		}
		opts = append(opts, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate optional options: %w", err)
	}
	return opts, nil
}
