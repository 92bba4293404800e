package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sdejongh/metadiff/pkg/models"
)

const (
	prefPairA = "pair.a"
	prefPairB = "pair.b"
)

// SetPreference stores a named value
func (d *DB) SetPreference(ctx context.Context, name, value string) error {
	const q = `INSERT INTO preferences (name, value, updated_at_unix) VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at_unix = excluded.updated_at_unix`
	if _, err := d.db.ExecContext(ctx, q, name, value, d.now().Unix()); err != nil {
		return fmt.Errorf("set preference %s: %w", name, err)
	}
	return nil
}

// Preference returns a named value. Returns "" if it was never set.
func (d *DB) Preference(ctx context.Context, name string) (string, error) {
	var value string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE name = ?`, name).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("get preference %s: %w", name, err)
	}
	return value, nil
}

// SaveLastPair remembers the most recently selected environment pair
func (d *DB) SaveLastPair(ctx context.Context, pair models.EnvironmentPair) error {
	if err := d.SetPreference(ctx, prefPairA, pair.A); err != nil {
		return err
	}
	return d.SetPreference(ctx, prefPairB, pair.B)
}

// LastPair returns the most recently selected pair; both aliases are
// empty if none was saved
func (d *DB) LastPair(ctx context.Context) (models.EnvironmentPair, error) {
	a, err := d.Preference(ctx, prefPairA)
	if err != nil {
		return models.EnvironmentPair{}, err
	}
	b, err := d.Preference(ctx, prefPairB)
	if err != nil {
		return models.EnvironmentPair{}, err
	}
	return models.EnvironmentPair{A: a, B: b}, nil
}
