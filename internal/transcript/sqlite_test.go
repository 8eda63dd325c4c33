package transcript

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-interview-sim/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "transcripts.db"))
	require.NoError(t, err)
	return store
}

func sampleTranscript(sessionID string) *Transcript {
	return &Transcript{
		SessionID:     sessionID,
		PatientAge:    50,
		PatientGender: domain.GenderMale,
		Differential:  []string{"ACS"},
		Seed:          18446744073709551557,
		Log: []domain.QuestionLogEntry{
			{QuestionText: "Does your family have heart disease?", Timestamp: time.Unix(1700000000, 0).UTC(),
				Intent: domain.SpecificIntent("coronary_artery_disease")},
			{QuestionText: "Any family history?", Timestamp: time.Unix(1700000060, 0).UTC(),
				Intent: domain.GeneralIntent()},
		},
		Report:    &domain.Report{Score: 72.5, Grade: "C", QuestionCount: 2},
		StartedAt: time.Unix(1700000000, 0).UTC(),
		EndedAt:   time.Unix(1700000600, 0).UTC(),
	}
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)

	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	tr := sampleTranscript("session-1")
	require.NoError(t, store.Save(ctx, tr))
	assert.False(t, tr.CreatedAt.IsZero())

	got, err := store.Get(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551557), got.Seed, "seed survives the int64 column")
	assert.Equal(t, []string{"ACS"}, got.Differential)
	assert.Equal(t, domain.GenderMale, got.PatientGender)
	require.Len(t, got.Log, 2)
	assert.Equal(t, domain.IntentSpecific, got.Log[0].Intent.Kind)
	assert.Equal(t, "coronary_artery_disease", got.Log[0].Intent.ConditionID)
	require.NotNil(t, got.Report)
	assert.Equal(t, "C", got.Report.Grade)
}

func TestSQLiteStore_SaveReplaces(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	tr := sampleTranscript("session-1")
	require.NoError(t, store.Save(ctx, tr))

	tr.Report = &domain.Report{Score: 95, Grade: "A"}
	require.NoError(t, store.Save(ctx, tr))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := store.Get(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, "A", got.Report.Grade)
}

func TestSQLiteStore_GetNotFound(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteStore_SaveRequiresSessionID(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	err := store.Save(context.Background(), &Transcript{})
	assert.Error(t, err)
}

func TestSQLiteStore_ListAndDelete(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		tr := sampleTranscript(fmt.Sprintf("session-%d", i))
		tr.CreatedAt = time.Unix(1700000000+int64(i), 0)
		require.NoError(t, store.Save(ctx, tr))
	}

	page, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "session-4", page[0].SessionID, "newest first")

	rest, err := store.List(ctx, 10, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 3)

	require.NoError(t, store.Delete(ctx, "session-0"))
	require.NoError(t, store.Delete(ctx, "never-existed"))
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestSQLiteStore_ExportImport(t *testing.T) {
	src := createTestStore(t)
	defer src.Close()
	ctx := context.Background()

	require.NoError(t, src.Save(ctx, sampleTranscript("a")))
	require.NoError(t, src.Save(ctx, sampleTranscript("b")))

	var buf bytes.Buffer
	require.NoError(t, src.ExportJSON(ctx, &buf))
	assert.Contains(t, buf.String(), `"version": "1.0"`)

	dst := createTestStore(t)
	defer dst.Close()
	require.NoError(t, dst.Save(ctx, sampleTranscript("a")))

	imported, skipped, err := dst.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)

	count, err := dst.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSQLiteStore_ImportInvalidJSON(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	_, _, err := store.ImportJSON(context.Background(), bytes.NewReader([]byte("{not json")))
	assert.Error(t, err)
}
