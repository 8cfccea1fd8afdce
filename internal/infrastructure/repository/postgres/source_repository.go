// Package postgres persists workbook source metadata. Vectors never live
// here; postgres only tracks what was uploaded and how its indexing went.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/karisazi/faq-chatbot/internal/core/domain"
)

type SourceRepository struct {
	db *sql.DB
}

func NewSourceRepository(db *sql.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *SourceRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS sources (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	status TEXT NOT NULL,
	record_count INTEGER NOT NULL DEFAULT 0,
	product_count INTEGER NOT NULL DEFAULT 0,
	customer_count INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sources_status ON sources(status);
CREATE INDEX IF NOT EXISTS idx_sources_created_at ON sources(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *SourceRepository) Create(ctx context.Context, source *domain.Source) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sources (
	id, filename, mime_type, storage_path, status, record_count, product_count, customer_count, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		source.ID, source.Filename, source.MimeType, source.StoragePath, string(source.Status),
		source.RecordCount, source.ProductCount, source.CustomerCount, source.Error,
		source.CreatedAt, source.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	return nil
}

func (r *SourceRepository) GetByID(ctx context.Context, id string) (*domain.Source, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, mime_type, storage_path, status, record_count, product_count, customer_count, error_message, created_at, updated_at
FROM sources
WHERE id = $1
`, id)

	var source domain.Source
	var status string

	err := row.Scan(
		&source.ID, &source.Filename, &source.MimeType, &source.StoragePath, &status,
		&source.RecordCount, &source.ProductCount, &source.CustomerCount, &source.Error,
		&source.CreatedAt, &source.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSourceNotFound, "get source", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan source: %w", err)
	}

	source.Status = domain.SourceStatus(status)
	return &source, nil
}

func (r *SourceRepository) UpdateStatus(ctx context.Context, id string, status domain.SourceStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE sources
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update source status: %w", err)
	}
	return ensureRowAffected(res, id)
}

func (r *SourceRepository) SaveCounts(ctx context.Context, id string, total, product, customer int) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE sources
SET record_count = $2, product_count = $3, customer_count = $4, updated_at = $5
WHERE id = $1
`, id, total, product, customer, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save source counts: %w", err)
	}
	return ensureRowAffected(res, id)
}

func ensureRowAffected(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrSourceNotFound, "update source", fmt.Errorf("id %s", id))
	}
	return nil
}
