// Package sqlite provides a SQLite-backed archive store, suited to single
// host tools that want their analysis history to survive restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/smallnest/textflow/archive"
)

// SqliteStore implements archive.Store using SQLite.
type SqliteStore struct {
	db        *sql.DB
	tableName string
}

var _ archive.Store = (*SqliteStore)(nil)

// SqliteOptions configuration for SQLite connection
type SqliteOptions struct {
	Path      string
	TableName string // Default "analysis_records"
}

// NewSqliteStore opens (or creates) the database at the given path and
// ensures the schema exists.
func NewSqliteStore(opts SqliteOptions) (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "analysis_records"
	}

	store := &SqliteStore{
		db:        db,
		tableName: tableName,
	}

	if err := store.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// InitSchema creates the necessary table if it doesn't exist
func (s *SqliteStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			category TEXT NOT NULL,
			classification TEXT NOT NULL,
			entities TEXT,
			summary TEXT,
			sentiment TEXT,
			report TEXT,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_created_at ON %s (created_at);
	`, s.tableName, s.tableName, s.tableName)

	_, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save stores a record.
func (s *SqliteStore) Save(ctx context.Context, record *archive.Record) error {
	entities, err := json.Marshal(record.Entities)
	if err != nil {
		return fmt.Errorf("failed to marshal entities: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s
		(id, text, category, classification, entities, summary, sentiment, report, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		record.ID, record.Text, record.Category, record.Classification,
		string(entities), record.Summary, record.Sentiment, record.Report,
		record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *SqliteStore) Get(ctx context.Context, id string) (*archive.Record, error) {
	query := fmt.Sprintf(`
		SELECT id, text, category, classification, entities, summary, sentiment, report, created_at
		FROM %s WHERE id = ?
	`, s.tableName)

	record, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, archive.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return record, nil
}

// List returns up to limit records, newest first.
func (s *SqliteStore) List(ctx context.Context, limit int) ([]*archive.Record, error) {
	query := fmt.Sprintf(`
		SELECT id, text, category, classification, entities, summary, sentiment, report, created_at
		FROM %s ORDER BY created_at DESC
	`, s.tableName)
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
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
func (s *SqliteStore) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.tableName)
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deletion: %w", err)
	}
	if affected == 0 {
		return archive.ErrNotFound
	}
	return nil
}

// Close closes the database.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*archive.Record, error) {
	var record archive.Record
	var entities sql.NullString
	var summary, sentiment, report sql.NullString

	err := row.Scan(&record.ID, &record.Text, &record.Category, &record.Classification,
		&entities, &summary, &sentiment, &report, &record.CreatedAt)
	if err != nil {
		return nil, err
	}

	if entities.Valid && entities.String != "" {
		if err := json.Unmarshal([]byte(entities.String), &record.Entities); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entities: %w", err)
		}
	}
	record.Summary = summary.String
	record.Sentiment = sentiment.String
	record.Report = report.String
	return &record, nil
}
