package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Register the postgres driver
	"github.com/pressly/goose/v3"

	"Headshot/internal/core/textures"
	"Headshot/internal/db/migrations"
)

type postgresFreshnessRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewFreshnessRepository creates a PostgreSQL backed freshness store
func NewFreshnessRepository(db *sql.DB) textures.FreshnessStore {
	return &postgresFreshnessRepo{db: db, now: time.Now}
}

// Migrate applies the embedded migrations
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Get retrieves the freshness record of an identity
func (r *postgresFreshnessRepo) Get(ctx context.Context, key string) (*textures.FreshnessRecord, error) {
	query := `SELECT skin_hash, cape_hash, checked_at FROM texture_freshness WHERE identity = $1`

	var rec textures.FreshnessRecord
	err := r.db.QueryRowContext(ctx, query, key).Scan(&rec.SkinHash, &rec.CapeHash, &rec.LastChecked)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get freshness record: %w", err)
	}
	return &rec, nil
}

// Touch bumps checked_at of an existing record
func (r *postgresFreshnessRepo) Touch(ctx context.Context, key string) error {
	query := `UPDATE texture_freshness SET checked_at = $2 WHERE identity = $1`

	if _, err := r.db.ExecContext(ctx, query, key, r.now().UTC()); err != nil {
		return fmt.Errorf("failed to touch freshness record: %w", err)
	}
	return nil
}

// Put upserts both hashes
func (r *postgresFreshnessRepo) Put(ctx context.Context, key, skinHash, capeHash string) error {
	query := `
		INSERT INTO texture_freshness (identity, skin_hash, cape_hash, checked_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (identity)
		DO UPDATE SET
			skin_hash = EXCLUDED.skin_hash,
			cape_hash = EXCLUDED.cape_hash,
			checked_at = EXCLUDED.checked_at`

	if _, err := r.db.ExecContext(ctx, query, key, skinHash, capeHash, r.now().UTC()); err != nil {
		return fmt.Errorf("failed to save freshness record: %w", err)
	}
	return nil
}
