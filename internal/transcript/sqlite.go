package transcript

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/clinical-interview-sim/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite transcript store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

func createSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS transcripts (
		session_id TEXT PRIMARY KEY,
		patient_age INTEGER NOT NULL,
		patient_gender TEXT DEFAULT '',
		differential TEXT NOT NULL DEFAULT '[]',
		seed INTEGER NOT NULL,
		log TEXT NOT NULL DEFAULT '[]',
		report TEXT NOT NULL DEFAULT 'null',
		score REAL NOT NULL DEFAULT 0,
		grade TEXT DEFAULT '',
		started_at DATETIME,
		ended_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_transcripts_created_at ON transcripts(created_at);
	CREATE INDEX IF NOT EXISTS idx_transcripts_grade ON transcripts(grade);
	`
	_, err := db.Exec(schema)
	return err
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

const selectColumns = `session_id, patient_age, patient_gender, differential, seed, log, report,
	started_at, ended_at, created_at, updated_at`

func scanTranscript(s scanner) (*Transcript, error) {
	t := &Transcript{}
	var gender string
	var seed int64
	var cols encodedColumns
	err := s.Scan(
		&t.SessionID, &t.PatientAge, &gender, &cols.differential, &seed, &cols.log, &cols.report,
		&t.StartedAt, &t.EndedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.PatientGender = domain.Gender(gender)
	t.Seed = uint64(seed)
	if err := decodeColumns(t, cols); err != nil {
		return nil, err
	}
	return t, nil
}

// Save stores a transcript, replacing any earlier one for the same session.
func (s *SQLiteStore) Save(ctx context.Context, t *Transcript) error {
	if err := validate(t); err != nil {
		return err
	}
	cols, err := encodeColumns(t)
	if err != nil {
		return err
	}

	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transcripts (
			session_id, patient_age, patient_gender, differential, seed, log, report,
			score, grade, started_at, ended_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			patient_age = excluded.patient_age,
			patient_gender = excluded.patient_gender,
			differential = excluded.differential,
			seed = excluded.seed,
			log = excluded.log,
			report = excluded.report,
			score = excluded.score,
			grade = excluded.grade,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			updated_at = excluded.updated_at
	`,
		t.SessionID, t.PatientAge, string(t.PatientGender), cols.differential, int64(t.Seed),
		cols.log, cols.report, t.Score(), t.Grade(), t.StartedAt, t.EndedAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

// Get returns the transcript for sessionID.
func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (*Transcript, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM transcripts WHERE session_id = ?", sessionID)

	t, err := scanTranscript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transcript %s: %w", sessionID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return t, nil
}

// List returns transcripts, newest first, with pagination.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Transcript, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM transcripts ORDER BY created_at DESC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Transcript
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// Count returns the number of stored transcripts.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transcripts").Scan(&count)
	return count, err
}

// Delete removes the transcript for sessionID.
func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM transcripts WHERE session_id = ?", sessionID)
	return err
}

// ExportJSON writes every transcript as one JSON document.
func (s *SQLiteStore) ExportJSON(ctx context.Context, w io.Writer) error {
	return exportJSON(ctx, s, w)
}

// ImportJSON imports transcripts, skipping sessions that already exist.
func (s *SQLiteStore) ImportJSON(ctx context.Context, r io.Reader) (int, int, error) {
	return importJSON(ctx, s, r)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
