package transcript

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"

	"github.com/clinical-interview-sim/internal/domain"
)

// PostgresSchema creates the transcripts table. NewPostgresStore does not run it;
// deployments apply it once, tests apply it from getTestDB.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS transcripts (
	session_id TEXT PRIMARY KEY,
	patient_age INTEGER NOT NULL,
	patient_gender TEXT DEFAULT '',
	differential JSONB NOT NULL DEFAULT '[]',
	seed BIGINT NOT NULL,
	log JSONB NOT NULL DEFAULT '[]',
	report JSONB,
	score DOUBLE PRECISION NOT NULL DEFAULT 0,
	grade TEXT DEFAULT '',
	started_at TIMESTAMP WITH TIME ZONE,
	ended_at TIMESTAMP WITH TIME ZONE,
	created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_transcripts_created_at ON transcripts(created_at);
`

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL transcript store.
// It expects the schema to already exist.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL transcript store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Save upserts the transcript by session id.
func (s *PostgresStore) Save(ctx context.Context, t *Transcript) error {
	if err := validate(t); err != nil {
		return err
	}
	cols, err := encodeColumns(t)
	if err != nil {
		return err
	}
	now := time.Now()

	query := `
		INSERT INTO transcripts (
			session_id, patient_age, patient_gender, differential, seed, log, report,
			score, grade, started_at, ended_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (session_id) DO UPDATE SET
			patient_age = EXCLUDED.patient_age,
			patient_gender = EXCLUDED.patient_gender,
			differential = EXCLUDED.differential,
			seed = EXCLUDED.seed,
			log = EXCLUDED.log,
			report = EXCLUDED.report,
			score = EXCLUDED.score,
			grade = EXCLUDED.grade,
			started_at = EXCLUDED.started_at,
			ended_at = EXCLUDED.ended_at,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		t.SessionID, t.PatientAge, string(t.PatientGender), cols.differential, int64(t.Seed),
		cols.log, cols.report, t.Score(), t.Grade(), t.StartedAt, t.EndedAt, now, now,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}

	t.UpdatedAt = now
	return nil
}

func scanPostgres(s scanner) (*Transcript, error) {
	t := &Transcript{}
	var gender string
	var seed int64
	var cols encodedColumns
	var report sql.NullString
	err := s.Scan(
		&t.SessionID, &t.PatientAge, &gender, &cols.differential, &seed, &cols.log, &report,
		&t.StartedAt, &t.EndedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	cols.report = report.String
	t.PatientGender = domain.Gender(gender)
	t.Seed = uint64(seed)
	if err := decodeColumns(t, cols); err != nil {
		return nil, err
	}
	return t, nil
}

// Get returns the transcript for sessionID.
func (s *PostgresStore) Get(ctx context.Context, sessionID string) (*Transcript, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM transcripts WHERE session_id = $1", sessionID)

	t, err := scanPostgres(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transcript %s: %w", sessionID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}
	return t, nil
}

// List returns transcripts, newest first, with pagination.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Transcript, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM transcripts ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	defer rows.Close()

	var result []*Transcript
	for rows.Next() {
		t, err := scanPostgres(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transcripts: %w", err)
	}
	return result, nil
}

// Count returns the number of stored transcripts.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transcripts").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transcripts: %w", err)
	}
	return count, nil
}

// Delete removes the transcript for sessionID.
func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM transcripts WHERE session_id = $1", sessionID); err != nil {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}
	return nil
}

// ExportJSON writes every transcript as one JSON document.
func (s *PostgresStore) ExportJSON(ctx context.Context, w io.Writer) error {
	return exportJSON(ctx, s, w)
}

// ImportJSON imports transcripts, skipping sessions that already exist.
func (s *PostgresStore) ImportJSON(ctx context.Context, r io.Reader) (int, int, error) {
	return importJSON(ctx, s, r)
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
