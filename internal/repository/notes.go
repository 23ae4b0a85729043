// Package repository stores notes in a PostgreSQL database for users who
// keep their notes on a server instead of the local bbolt file.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/illarion/companion/internal/model"
	"github.com/lib/pq"
)

// DefaultTable is the table notes are stored in
const DefaultTable = "notes"

// DefaultTimeout bounds every statement
const DefaultTimeout = 10 * time.Second

const schema = `
CREATE SEQUENCE IF NOT EXISTS %[2]s;

CREATE TABLE IF NOT EXISTS %[1]s (
    name TEXT PRIMARY KEY,
    id BIGINT NOT NULL,
    content TEXT NOT NULL,
    favorite BOOLEAN NOT NULL DEFAULT FALSE,
    security_level INTEGER NOT NULL DEFAULT 0,
    iv BYTEA,
    date TIMESTAMPTZ NOT NULL,
    category_key BIGINT NOT NULL DEFAULT 0
);
`

const columns = `id, name, content, favorite, security_level, iv, date, category_key`

// Open connects to PostgreSQL and creates the notes table when missing
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NoteRepository stores notes keyed by name, like the bbolt notes bucket.
// IDs of new notes come from a sequence; explicit IDs are kept.
type NoteRepository struct {
	DB      *sql.DB
	table   string
	seq     string
	timeout time.Duration
}

// NewNoteRepository binds a repository to table ("" means DefaultTable)
func NewNoteRepository(db *sql.DB, table string) *NoteRepository {
	if table == "" {
		table = DefaultTable
	}
	return &NoteRepository{
		DB:      db,
		table:   pq.QuoteIdentifier(table),
		seq:     pq.QuoteIdentifier(table + "_id_seq"),
		timeout: DefaultTimeout,
	}
}

// Migrate creates the table and its ID sequence
func (r *NoteRepository) Migrate(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, fmt.Sprintf(schema, r.table, r.seq)); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (r *NoteRepository) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(s scanner) (model.Note, error) {
	var n model.Note
	err := s.Scan(&n.ID, &n.Name, &n.Content, &n.Favorite, &n.SecurityLevel, &n.IV, &n.Date, &n.CategoryKey)
	n.Date = n.Date.UTC()
	return n, err
}

// GetAll returns every note ordered by name
func (r *NoteRepository) GetAll() ([]model.Note, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	rows, err := r.DB.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM %s ORDER BY name`, columns, r.table))
	if err != nil {
		return nil, fmt.Errorf("GetAll: %w", err)
	}
	defer rows.Close()

	var notes []model.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetAll: %w", err)
	}
	return notes, nil
}

// GetByName returns the note with name and whether it exists
func (r *NoteRepository) GetByName(name string) (model.Note, bool, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	row := r.DB.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE name = $1`, columns, r.table), name)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Note{}, false, nil
	}
	if err != nil {
		return model.Note{}, false, fmt.Errorf("GetByName: %w", err)
	}
	return n, true, nil
}

// Add inserts n unless a note with the same name exists. It returns the
// stored note and false on conflict.
func (r *NoteRepository) Add(n model.Note) (model.Note, bool, error) {
	if n.Name == "" {
		return n, false, errors.New("record name must not be empty")
	}
	ctx, cancel := r.ctx()
	defer cancel()

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (COALESCE(NULLIF($1, 0), nextval('%s')), $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (name) DO NOTHING
		RETURNING id`, r.table, columns, r.seq)

	var id int64
	err := r.DB.QueryRowContext(ctx, query, args(n)...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return n, false, nil
	}
	if err != nil {
		return n, false, fmt.Errorf("Add: %w", err)
	}
	return n.WithID(id), true, nil
}

// Upsert stores n, replacing a note with the same name. A zero ID keeps
// the stored note's ID.
func (r *NoteRepository) Upsert(n model.Note) (model.Note, error) {
	if n.Name == "" {
		return n, errors.New("record name must not be empty")
	}
	ctx, cancel := r.ctx()
	defer cancel()

	query := fmt.Sprintf(`
		INSERT INTO %[1]s (%[2]s)
		VALUES (COALESCE(NULLIF($1, 0), nextval('%[3]s')), $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (name) DO UPDATE SET
			id = CASE WHEN $1 = 0 THEN %[1]s.id ELSE EXCLUDED.id END,
			content = EXCLUDED.content,
			favorite = EXCLUDED.favorite,
			security_level = EXCLUDED.security_level,
			iv = EXCLUDED.iv,
			date = EXCLUDED.date,
			category_key = EXCLUDED.category_key
		RETURNING id`, r.table, columns, r.seq)

	var id int64
	if err := r.DB.QueryRowContext(ctx, query, args(n)...).Scan(&id); err != nil {
		return n, fmt.Errorf("Upsert: %w", err)
	}
	return n.WithID(id), nil
}

// Delete removes the note with name. It returns false when no such note
// exists.
func (r *NoteRepository) Delete(name string) (bool, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE name = $1`, r.table), name)
	if err != nil {
		return false, fmt.Errorf("Delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Delete: %w", err)
	}
	return n > 0, nil
}

// DeleteAll removes every note. The ID sequence is kept.
func (r *NoteRepository) DeleteAll() error {
	ctx, cancel := r.ctx()
	defer cancel()

	if _, err := r.DB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, r.table)); err != nil {
		return fmt.Errorf("DeleteAll: %w", err)
	}
	return nil
}

// Count returns the number of notes
func (r *NoteRepository) Count() (int, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	var n int
	if err := r.DB.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return n, nil
}

func args(n model.Note) []any {
	return []any{n.ID, n.Name, n.Content, n.Favorite, n.SecurityLevel, n.IV, n.Date, n.CategoryKey}
}
