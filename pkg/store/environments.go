package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sdejongh/metadiff/pkg/models"
)

const environmentsFetch = "environments"

// SaveEnvironments replaces the cached environment list and stamps it
// with the current time
func (d *DB) SaveEnvironments(ctx context.Context, envs []models.Environment) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM environments`); err != nil {
		return fmt.Errorf("clear environments: %w", err)
	}
	const q = `INSERT INTO environments (alias, display_name, org_id, username, is_default, position)
VALUES (?, ?, ?, ?, ?, ?)`
	for i, e := range envs {
		isDefault := 0
		if e.IsDefault {
			isDefault = 1
		}
		if _, err := tx.ExecContext(ctx, q, e.Alias, e.DisplayName, e.ID, e.Username, isDefault, i); err != nil {
			return fmt.Errorf("save environment %s: %w", e.Alias, err)
		}
	}
	const stamp = `INSERT INTO fetches (name, fetched_at_unix) VALUES (?, ?)
ON CONFLICT(name) DO UPDATE SET fetched_at_unix = excluded.fetched_at_unix`
	if _, err := tx.ExecContext(ctx, stamp, environmentsFetch, d.now().Unix()); err != nil {
		return fmt.Errorf("stamp environments: %w", err)
	}
	return tx.Commit()
}

// CachedEnvironments is a stored environment list with its fetch time
type CachedEnvironments struct {
	Environments []models.Environment
	FetchedAt    time.Time
}

// Fresh reports whether the list is younger than maxAge. A non-positive
// maxAge never expires.
func (c *CachedEnvironments) Fresh(now time.Time, maxAge time.Duration) bool {
	if c == nil {
		return false
	}
	if maxAge <= 0 {
		return true
	}
	return now.Sub(c.FetchedAt) < maxAge
}

// LoadEnvironments returns the cached environment list in its saved
// order. Returns nil if nothing was ever saved.
func (d *DB) LoadEnvironments(ctx context.Context) (*CachedEnvironments, error) {
	var fetchedAt int64
	err := d.db.QueryRowContext(ctx, `SELECT fetched_at_unix FROM fetches WHERE name = ?`, environmentsFetch).Scan(&fetchedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load fetch time: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, `SELECT alias, display_name, org_id, username, is_default
FROM environments ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load environments: %w", err)
	}
	defer rows.Close()

	cached := &CachedEnvironments{FetchedAt: time.Unix(fetchedAt, 0)}
	for rows.Next() {
		var e models.Environment
		var isDefault int
		if err := rows.Scan(&e.Alias, &e.DisplayName, &e.ID, &e.Username, &isDefault); err != nil {
			return nil, fmt.Errorf("scan environment: %w", err)
		}
		e.IsDefault = isDefault != 0
		cached.Environments = append(cached.Environments, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate environments: %w", err)
	}
	return cached, nil
}

// Now returns the store's clock reading
func (d *DB) Now() time.Time {
	return d.now()
}
