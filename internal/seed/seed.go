// Package seed imports a catalog file into the SQLite snapshot.
package seed

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Simplici0/machinequote/internal/catalog"
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts   int
	Updates   int
	Deletes   int
	Unchanged int
}

// Run writes every machine of c into the database in an idempotent way.
// Machines whose content did not change are left alone; machines missing from
// c are removed so the snapshot mirrors the file.
func Run(ctx context.Context, db *sql.DB, c *catalog.Catalog) (Stats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}
	keep := make(map[string]bool, c.Len())

	for _, m := range c.Machines() {
		keep[m.Name] = true
		if err := upsertMachine(ctx, tx, m, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := deleteMissing(ctx, tx, keep, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func upsertMachine(ctx context.Context, tx *sql.Tx, m catalog.Machine, stats *Stats) error {
	sum, err := checksum(m)
	if err != nil {
		return fmt.Errorf("checksum machine %q: %w", m.Name, err)
	}

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT checksum FROM machines WHERE name = ?`, m.Name).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO machines (name, base_price, default_discount, checksum)
			VALUES (?, ?, ?, ?)
		`, m.Name, m.BasePrice.String(), m.DefaultDiscount.String(), sum); err != nil {
			return fmt.Errorf("insert machine %q: %w", m.Name, err)
		}
		stats.Inserts++
	case err != nil:
		return fmt.Errorf("check machine %q: %w", m.Name, err)
	case existing == sum:
		stats.Unchanged++
		return nil
	default:
		if _, err := tx.ExecContext(ctx, `
			UPDATE machines
			SET
				base_price = ?,
				default_discount = ?,
				checksum = ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE name = ?
		`, m.BasePrice.String(), m.DefaultDiscount.String(), sum, m.Name); err != nil {
			return fmt.Errorf("update machine %q: %w", m.Name, err)
		}
		stats.Updates++
	}

	return replaceOptions(ctx, tx, m)
}

func replaceOptions(ctx context.Context, tx *sql.Tx, m catalog.Machine) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM standard_options WHERE machine_name = ?`, m.Name); err != nil {
		return fmt.Errorf("clear standard options for %q: %w", m.Name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM optional_options WHERE machine_name = ?`, m.Name); err != nil {
		return fmt.Errorf("clear optional options for %q: %w", m.Name, err)
	}

	for i, text := range m.StandardOptions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO standard_options (machine_name, position, text)
			VALUES (?, ?, ?)
		`, m.Name, i, text); err != nil {
			return fmt.Errorf("insert standard option %d for %q: %w", i, m.Name, err)
		}
	}
	for i, o := range m.OptionalOptions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO optional_options (machine_name, position, description, price, code)
			VALUES (?, ?, ?, ?, ?)
		`, m.Name, i, o.Description, o.Price, o.Code); err != nil {
			return fmt.Errorf("insert optional option %d for %q: %w", i, m.Name, err)
		}
	}
	return nil
}

func deleteMissing(ctx context.Context, tx *sql.Tx, keep map[string]bool, stats *Stats) error {
	rows, err := tx.QueryContext(ctx, `SELECT name FROM machines`)
	if err != nil {
		return fmt.Errorf("list machines: %w", err)
	}

	var stale []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("scan machine name: %w", err)
		}
		if !keep[name] {
			stale = append(stale, name)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate machines: %w", err)
	}
	rows.Close()

	for _, name := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM machines WHERE name = ?`, name); err != nil {
			return fmt.Errorf("delete machine %q: %w", name, err)
		}
		stats.Deletes++
	}
	return nil
}

func checksum(m catalog.Machine) (string, error) {
	payload, err := json.Marshal(struct {
		BasePrice       string
		DefaultDiscount string
		StandardOptions []string
		OptionalOptions []catalog.Option
	}{
		BasePrice:       m.BasePrice.String(),
		DefaultDiscount: m.DefaultDiscount.String(),
		StandardOptions: m.StandardOptions,
		OptionalOptions: m.OptionalOptions,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
