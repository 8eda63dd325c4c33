// Package transcript persists finished interview sessions: the case inputs, the
// seed that reproduces the family graph, the question log and the coverage report.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/clinical-interview-sim/internal/domain"
)

// Transcript is the stored record of one session.
type Transcript struct {
	SessionID     string                    `json:"session_id"`
	PatientAge    int                       `json:"patient_age"`
	PatientGender domain.Gender             `json:"patient_gender"`
	Differential  []string                  `json:"differential"`
	Seed          uint64                    `json:"seed"`
	Log           []domain.QuestionLogEntry `json:"log"`
	Report        *domain.Report            `json:"report,omitempty"`
	StartedAt     time.Time                 `json:"started_at"`
	EndedAt       time.Time                 `json:"ended_at"`
	CreatedAt     time.Time                 `json:"created_at"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

// Score returns the report score, or zero without a report.
func (t *Transcript) Score() float64 {
	if t.Report == nil {
		return 0
	}
	return t.Report.Score
}

// Grade returns the report grade, or empty without a report.
func (t *Transcript) Grade() string {
	if t.Report == nil {
		return ""
	}
	return t.Report.Grade
}

// Store defines the interface for transcript storage operations.
type Store interface {
	// Save stores a transcript, replacing any earlier one for the same session.
	Save(ctx context.Context, t *Transcript) error

	// Get returns the transcript for sessionID or an error wrapping domain.ErrNotFound.
	Get(ctx context.Context, sessionID string) (*Transcript, error)

	// List returns transcripts, newest first, with pagination.
	List(ctx context.Context, limit, offset int) ([]*Transcript, error)

	// Count returns the number of stored transcripts.
	Count(ctx context.Context) (int64, error)

	// Delete removes the transcript for sessionID. Deleting a missing one is not an error.
	Delete(ctx context.Context, sessionID string) error

	// ExportJSON writes every transcript as one JSON document.
	ExportJSON(ctx context.Context, w io.Writer) error

	// ImportJSON reads a document written by ExportJSON. Sessions that already
	// exist are skipped.
	ImportJSON(ctx context.Context, r io.Reader) (imported int, skipped int, err error)

	// Close releases resources.
	Close() error
}

// Export is the JSON export format.
type Export struct {
	Version     string        `json:"version"`
	ExportedAt  time.Time     `json:"exported_at"`
	Count       int           `json:"count"`
	Transcripts []*Transcript `json:"transcripts"`
}

const exportVersion = "1.0"

// maxExportLimit is the maximum number of transcripts exported at once.
const maxExportLimit = 1000000

var errMissingSessionID = errors.New("transcript session id is required")

func validate(t *Transcript) error {
	if t == nil || t.SessionID == "" {
		return errMissingSessionID
	}
	return nil
}

// exportJSON and importJSON implement the export format on top of any Store.
func exportJSON(ctx context.Context, s Store, w io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list transcripts: %w", err)
	}
	export := &Export{
		Version:     exportVersion,
		ExportedAt:  time.Now(),
		Count:       len(all),
		Transcripts: all,
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func importJSON(ctx context.Context, s Store, r io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}
	for _, t := range export.Transcripts {
		_, err := s.Get(ctx, t.SessionID)
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}
		if err := s.Save(ctx, t); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}
	return imported, skipped, nil
}

// encodedColumns are the JSON-encoded columns shared by the SQL stores.
type encodedColumns struct {
	differential string
	log          string
	report       string
}

func encodeColumns(t *Transcript) (encodedColumns, error) {
	var cols encodedColumns
	diff, err := json.Marshal(nonNilStrings(t.Differential))
	if err != nil {
		return cols, fmt.Errorf("failed to encode differential: %w", err)
	}
	log, err := json.Marshal(nonNilLog(t.Log))
	if err != nil {
		return cols, fmt.Errorf("failed to encode log: %w", err)
	}
	report := []byte("null")
	if t.Report != nil {
		if report, err = json.Marshal(t.Report); err != nil {
			return cols, fmt.Errorf("failed to encode report: %w", err)
		}
	}
	cols.differential, cols.log, cols.report = string(diff), string(log), string(report)
	return cols, nil
}

func decodeColumns(t *Transcript, cols encodedColumns) error {
	if err := json.Unmarshal([]byte(cols.differential), &t.Differential); err != nil {
		return fmt.Errorf("failed to decode differential: %w", err)
	}
	if err := json.Unmarshal([]byte(cols.log), &t.Log); err != nil {
		return fmt.Errorf("failed to decode log: %w", err)
	}
	if cols.report != "" && cols.report != "null" {
		t.Report = &domain.Report{}
		if err := json.Unmarshal([]byte(cols.report), t.Report); err != nil {
			return fmt.Errorf("failed to decode report: %w", err)
		}
	}
	return nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilLog(l []domain.QuestionLogEntry) []domain.QuestionLogEntry {
	if l == nil {
		return []domain.QuestionLogEntry{}
	}
	return l
}
