// Package postgres provides a PostgreSQL-backed archive store for services
// that share their analysis history across instances.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smallnest/textflow/archive"
)

// DBPool defines the interface for database connection pool
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements archive.Store using PostgreSQL.
type PostgresStore struct {
	pool      DBPool
	tableName string
}

var _ archive.Store = (*PostgresStore)(nil)

// PostgresOptions configuration for Postgres connection
type PostgresOptions struct {
	ConnString string
	TableName  string // Default "analysis_records"
}

// NewPostgresStore creates a new Postgres archive store.
func NewPostgresStore(ctx context.Context, opts PostgresOptions) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "analysis_records"
	}

	return &PostgresStore{
		pool:      pool,
		tableName: tableName,
	}, nil
}

// NewPostgresStoreWithPool creates a new Postgres archive store with an
// existing pool. Useful for testing with mocks.
func NewPostgresStoreWithPool(pool DBPool, tableName string) *PostgresStore {
	if tableName == "" {
		tableName = "analysis_records"
	}
	return &PostgresStore{
		pool:      pool,
		tableName: tableName,
	}
}

// InitSchema creates the necessary table if it doesn't exist
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			category TEXT NOT NULL,
			classification TEXT NOT NULL,
			entities JSONB,
			summary TEXT,
			sentiment TEXT,
			report TEXT,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_created_at ON %s (created_at);
	`, s.tableName, s.tableName, s.tableName)

	_, err := s.pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save stores a record.
func (s *PostgresStore) Save(ctx context.Context, record *archive.Record) error {
	entities, err := json.Marshal(record.Entities)
	if err != nil {
		return fmt.Errorf("failed to marshal entities: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, text, category, classification, entities, summary, sentiment, report, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			category = EXCLUDED.category,
			classification = EXCLUDED.classification,
			entities = EXCLUDED.entities,
			summary = EXCLUDED.summary,
			sentiment = EXCLUDED.sentiment,
			report = EXCLUDED.report,
			created_at = EXCLUDED.created_at
	`, s.tableName)

	_, err = s.pool.Exec(ctx, query,
		record.ID, record.Text, record.Category, record.Classification,
		entities, record.Summary, record.Sentiment, record.Report, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*archive.Record, error) {
	query := fmt.Sprintf(`
		SELECT id, text, category, classification, entities, summary, sentiment, report, created_at
		FROM %s WHERE id = $1
	`, s.tableName)

	record, err := scanRecord(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, archive.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return record, nil
}

// List returns up to limit records, newest first.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]*archive.Record, error) {
	query := fmt.Sprintf(`
		SELECT id, text, category, classification, entities, summary, sentiment, report, created_at
		FROM %s ORDER BY created_at DESC
	`, s.tableName)
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*archive.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

// Delete removes a record by ID.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return archive.ErrNotFound
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*archive.Record, error) {
	var record archive.Record
	var entities []byte

	err := row.Scan(&record.ID, &record.Text, &record.Category, &record.Classification,
		&entities, &record.Summary, &record.Sentiment, &record.Report, &record.CreatedAt)
	if err != nil {
		return nil, err
	}

	if len(entities) > 0 {
		if err := json.Unmarshal(entities, &record.Entities); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entities: %w", err)
		}
	}
	return &record, nil
}
