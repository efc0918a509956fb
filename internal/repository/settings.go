package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nazmunsakib/discountkit/internal/domain/settings"
)

const (
	allSettingsSQL = `SELECT key, value FROM settings`

	setSettingSQL = `INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	resetSettingsSQL = `DELETE FROM settings`
)

var _ settings.Store = (*SettingsRepository)(nil)

// SettingsRepository implements settings.Store backed by PostgreSQL.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository returns a SettingsRepository that uses the given pool.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// All returns every stored setting as a key/value map.
func (r *SettingsRepository) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, allSettingsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	return out, nil
}

// Set upserts one setting value.
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	if _, err := r.pool.Exec(ctx, setSettingSQL, key, value); err != nil {
		return fmt.Errorf("setting %q: %w", key, err)
	}
	return nil
}

// Reset removes all stored settings, returning evaluation to defaults.
func (r *SettingsRepository) Reset(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, resetSettingsSQL); err != nil {
		return fmt.Errorf("resetting settings: %w", err)
	}
	return nil
}
