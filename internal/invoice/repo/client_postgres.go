package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	errx "github.com/invoice-bot-poc/server/internal/core/error"
	"github.com/invoice-bot-poc/server/internal/invoice/model"
	logx "github.com/invoice-bot-poc/server/pkg/logger"
)

// ClientsSchema creates the table used by PostgresClientRepository.
const ClientsSchema = `
CREATE TABLE IF NOT EXISTS invoice_clients (
	client_key  TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	address     TEXT NOT NULL DEFAULT '',
	gst_number  TEXT NOT NULL DEFAULT '',
	tax_mode    TEXT NOT NULL DEFAULT '',
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

type PostgresClientRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresClientRepository(pool *pgxpool.Pool) *PostgresClientRepository {
	return &PostgresClientRepository{pool: pool}
}

// Migrate creates the clients table when it does not exist yet.
func (r *PostgresClientRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, ClientsSchema); err != nil {
		logx.Error().Err(err).Msg("failed to create invoice_clients table")
		return errx.WrapPostgres(err)
	}
	return nil
}

func (r *PostgresClientRepository) Get(ctx context.Context, key string) (*model.ClientRecord, error) {
	var rec model.ClientRecord
	var mode string
	query := `
		SELECT name, address, gst_number, tax_mode, updated_at
		FROM invoice_clients
		WHERE client_key = $1
	`
	err := r.pool.QueryRow(ctx, query, key).Scan(&rec.Name, &rec.Address, &rec.GSTNumber, &mode, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		logx.Error().Err(err).Str("client", key).Msg("failed to load client from postgres")
		return nil, errx.WrapPostgres(err)
	}
	rec.TaxMode = model.TaxMode(mode)
	return &rec, nil
}

func (r *PostgresClientRepository) Put(ctx context.Context, key string, record model.ClientRecord) error {
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO invoice_clients (client_key, name, address, gst_number, tax_mode, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (client_key)
		DO UPDATE SET name = EXCLUDED.name, address = EXCLUDED.address, gst_number = EXCLUDED.gst_number,
			tax_mode = EXCLUDED.tax_mode, updated_at = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query, key, record.Name, record.Address, record.GSTNumber, string(record.TaxMode), record.UpdatedAt)
	if err != nil {
		logx.Error().Err(err).Str("client", key).Msg("failed to upsert client in postgres")
		return errx.WrapPostgres(err)
	}
	return nil
}

var _ model.ClientRepository = (*PostgresClientRepository)(nil)
