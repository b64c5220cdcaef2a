package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Schema creates the distribution list table. Applied by Migrate.
const Schema = `
CREATE TABLE IF NOT EXISTS distribution_lists (
	id               BIGSERIAL PRIMARY KEY,
	alias            TEXT NOT NULL UNIQUE,
	flags            INTEGER NOT NULL DEFAULT 0,
	senders_query    JSONB,
	recipients_query JSONB,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const selectColumns = `id, alias, flags, senders_query, recipients_query, updated_at`

// PostgresStore is a PostgreSQL implementation of the Store interface.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the schema if it does not exist yet.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// ListDistributionLists retrieves all lists ordered by id.
func (p *PostgresStore) ListDistributionLists(ctx context.Context) ([]DistributionList, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+selectColumns+` FROM distribution_lists ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lists := make([]DistributionList, 0)
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, err
		}
		lists = append(lists, *l)
	}
	return lists, rows.Err()
}

// GetDistributionList retrieves a list by id.
func (p *PostgresStore) GetDistributionList(ctx context.Context, id int64) (*DistributionList, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM distribution_lists WHERE id = $1`, id)
	return mapNoRows(scanList(row))
}

// GetDistributionListByAlias retrieves a list by alias.
func (p *PostgresStore) GetDistributionListByAlias(ctx context.Context, alias string) (*DistributionList, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM distribution_lists WHERE alias = $1`, alias)
	return mapNoRows(scanList(row))
}

// CreateDistributionList inserts a new list.
func (p *PostgresStore) CreateDistributionList(ctx context.Context, params CreateParams) (*DistributionList, error) {
	senders, err := normalizeQuery(params.SendersQuery)
	if err != nil {
		return nil, err
	}
	recipients, err := normalizeQuery(params.RecipientsQuery)
	if err != nil {
		return nil, err
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO distribution_lists (alias, flags, senders_query, recipients_query)
		VALUES ($1, $2, $3, $4)
		RETURNING `+selectColumns,
		params.Alias, int32(params.Flags), jsonbParam(senders), jsonbParam(recipients))
	return mapUniqueViolation(scanList(row))
}

// UpdateDistributionList changes alias and flags.
func (p *PostgresStore) UpdateDistributionList(ctx context.Context, id int64, params UpdateParams) (*DistributionList, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE distribution_lists SET alias = $2, flags = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+selectColumns,
		id, params.Alias, int32(params.Flags))
	return mapUniqueViolation(mapNoRows(scanList(row)))
}

// SetQuery replaces the query in one slot.
func (p *PostgresStore) SetQuery(ctx context.Context, id int64, slot Slot, query json.RawMessage) (*DistributionList, error) {
	column, err := slotColumn(slot)
	if err != nil {
		return nil, err
	}
	normalized, err := normalizeQuery(query)
	if err != nil {
		return nil, err
	}

	row := p.pool.QueryRow(ctx, `
		UPDATE distribution_lists SET `+column+` = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+selectColumns,
		id, jsonbParam(normalized))
	return mapNoRows(scanList(row))
}

// DeleteDistributionList removes a list from the database.
func (p *PostgresStore) DeleteDistributionList(ctx context.Context, id int64) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM distribution_lists WHERE id = $1`, id)
	return err
}

// Close closes the database connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func slotColumn(slot Slot) (string, error) {
	switch slot {
	case SlotSenders:
		return "senders_query", nil
	case SlotRecipients:
		return "recipients_query", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
}

// jsonbParam passes a nil query as SQL NULL.
func jsonbParam(raw json.RawMessage) any {
	if raw == nil {
		return nil
	}
	return string(raw)
}

func scanList(row pgx.Row) (*DistributionList, error) {
	var (
		l          DistributionList
		flags      int32
		senders    []byte
		recipients []byte
	)
	if err := row.Scan(&l.ID, &l.Alias, &flags, &senders, &recipients, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.Flags = Flags(flags)
	if senders != nil {
		l.SendersQuery = json.RawMessage(senders)
	}
	if recipients != nil {
		l.RecipientsQuery = json.RawMessage(recipients)
	}
	l.UpdatedAt = l.UpdatedAt.UTC()
	return &l, nil
}

func mapNoRows(l *DistributionList, err error) (*DistributionList, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return l, err
}

func mapUniqueViolation(l *DistributionList, err error) (*DistributionList, error) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return nil, ErrAliasTaken
	}
	return l, err
}
