package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tributary-data/tributary/pkg/config"
	"github.com/tributary-data/tributary/pkg/errors"
	"github.com/tributary-data/tributary/pkg/models"
)

// keyColumns maps each destination table to its primary key column.
var keyColumns = map[string]string{
	models.TableBooks:     "sku",
	models.TableQuotes:    "id",
	models.TableAddresses: "id",
	models.TablePartners:  "id",
}

// schemaDDL creates the destination tables and their query indexes.
// Idempotent; executed at warehouse initialization.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS books (
		sku TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		price_gbp NUMERIC(10, 2),
		price_eur NUMERIC(10, 2),
		rating INTEGER,
		category TEXT,
		image_url TEXT,
		image_ref TEXT,
		product_url TEXT,
		scraped_at TIMESTAMP DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS quotes (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		author TEXT,
		tags TEXT[],
		text_normalized TEXT,
		tags_normalized TEXT[],
		scraped_at TIMESTAMP DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS api_addresses (
		id TEXT PRIMARY KEY,
		label TEXT,
		score NUMERIC(6, 4),
		type TEXT,
		city TEXT,
		postcode TEXT,
		context TEXT,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		query TEXT,
		scraped_at TIMESTAMP DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS partners (
		id TEXT PRIMARY KEY,
		nom_librairie TEXT NOT NULL,
		adresse TEXT,
		code_postal TEXT,
		ville TEXT,
		contact_nom_hash TEXT,
		contact_email_hash TEXT,
		contact_telephone_hash TEXT,
		ca_annuel NUMERIC(14, 2),
		date_partenariat DATE,
		specialite TEXT,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		scraped_at TIMESTAMP DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_books_category ON books (category)`,
	`CREATE INDEX IF NOT EXISTS idx_quotes_author ON quotes (author)`,
	`CREATE INDEX IF NOT EXISTS idx_api_postcode ON api_addresses (postcode)`,
	`CREATE INDEX IF NOT EXISTS idx_partners_ville ON partners (ville)`,
	`CREATE INDEX IF NOT EXISTS idx_partners_postal ON partners (code_postal)`,
}

// Warehouse persists canonical rows to PostgreSQL. Writes are upserts
// keyed by the stable key, so the warehouse stays idempotent even if the
// dedup index is bypassed or reset.
type Warehouse struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewWarehouse connects to the warehouse and verifies the connection.
func NewWarehouse(ctx context.Context, cfg config.WarehouseConfig, logger *zap.Logger) (*Warehouse, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid warehouse configuration")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "warehouse unreachable").
			WithDetail("host", cfg.Host).
			WithDetail("database", cfg.Database)
	}
	return &Warehouse{
		pool:   pool,
		logger: logger.With(zap.String("sink", "warehouse")),
	}, nil
}

// EnsureSchema creates the destination tables and indexes if absent.
func (w *Warehouse) EnsureSchema(ctx context.Context) error {
	for _, ddl := range schemaDDL {
		if _, err := w.pool.Exec(ctx, ddl); err != nil {
			return errors.Wrap(err, errors.ErrorTypeQuery, "failed to apply warehouse schema")
		}
	}
	return nil
}

// UpsertRow inserts the row or, when its stable key already exists,
// updates every non-key column.
func (w *Warehouse) UpsertRow(ctx context.Context, row models.Row) error {
	query := upsertSQL(row)
	if _, err := w.pool.Exec(ctx, query, row.Values()...); err != nil {
		return errors.Wrap(err, errors.ErrorTypeQuery, "failed to upsert row").
			WithDetail("table", row.Table()).
			WithDetail("key", row.Key())
	}
	return nil
}

// ExistingKeys returns the stable keys already durably present in a
// table; the orchestrator uses it to seed the dedup index before a run.
func (w *Warehouse) ExistingKeys(ctx context.Context, table string) ([]string, error) {
	keyCol, ok := keyColumns[table]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeQuery, "unknown destination table %q", table)
	}

	rows, err := w.pool.Query(ctx, fmt.Sprintf("SELECT %s FROM %s", keyCol, table))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read existing keys").WithDetail("table", table)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to scan key").WithDetail("table", table)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read existing keys").WithDetail("table", table)
	}
	return keys, nil
}

// ErasePartner deletes a partner row by stable key. Part of the audited
// erasure procedure, never invoked by a normal pipeline run.
func (w *Warehouse) ErasePartner(ctx context.Context, id string) (bool, error) {
	tag, err := w.pool.Exec(ctx, "DELETE FROM partners WHERE id = $1", id)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrorTypeQuery, "failed to erase partner").WithDetail("id", id)
	}
	return tag.RowsAffected() > 0, nil
}

// Close releases the connection pool.
func (w *Warehouse) Close() {
	w.pool.Close()
}

// upsertSQL builds the insert-or-update statement for a row. Table and
// column names come from the row types themselves, never from input data.
func upsertSQL(row models.Row) string {
	cols := row.Columns()
	keyCol := cols[0]

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	updates := make([]string, 0, len(cols)-1)
	for _, col := range cols[1:] {
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		row.Table(),
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		keyCol,
		strings.Join(updates, ", "),
	)
}
