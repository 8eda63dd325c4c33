package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-interview-sim/internal/catalog"
	"github.com/clinical-interview-sim/internal/domain"
	"github.com/clinical-interview-sim/internal/service"
	"github.com/clinical-interview-sim/internal/transcript"
)

func newTestServer(t *testing.T, opts ...service.ServiceOption) *Server {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	cfg := &domain.Config{
		Generator: domain.DefaultGeneratorConfig(),
		Scoring:   domain.DefaultScoringConfig(),
		Sessions:  domain.SessionConfig{MaxSessions: 10, TTL: time.Hour},
	}
	svc, err := service.NewInterviewService(catalog.MustDefault(), cfg, logger, opts...)
	require.NoError(t, err)
	return NewServer(svc, logger, WithExportDir(t.TempDir()))
}

func TestNewServer_RegistersTools(t *testing.T) {
	server := newTestServer(t)

	assert.ElementsMatch(t, []string{
		"start_case", "ask_question", "score_case", "end_case", "reset_case", "family_tree", "get_transcript", "export_transcripts",
	}, server.Tools())
}

func TestTools_CaseFlow(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()
	seed := uint64(21)

	out, err := server.startCase(ctx, StartCaseArgs{PatientAge: 62, PatientGender: "F", Differential: []string{"stroke"}, Seed: &seed})
	require.NoError(t, err)
	started := out.(*service.StartCaseResult)
	assert.Equal(t, seed, started.Seed)

	out, err = server.askQuestion(ctx, AskArgs{SessionID: started.SessionID, Question: "Has anyone in your family had a stroke?"})
	require.NoError(t, err)
	reply := out.(*domain.DisclosureResult)
	assert.Equal(t, "stroke", reply.MatchedConditionID)
	assert.True(t, reply.Relevant)

	out, err = server.familyTree(ctx, SessionArgs{SessionID: started.SessionID})
	require.NoError(t, err)
	assert.Same(t, started.Family, out)

	out, err = server.resetCase(ctx, SessionArgs{SessionID: started.SessionID})
	require.NoError(t, err)
	assert.Equal(t, domain.StageFresh, out.(map[string]any)["stage"])

	out, err = server.scoreCase(ctx, SessionArgs{SessionID: started.SessionID})
	require.NoError(t, err)
	assert.Equal(t, 0, out.(*domain.Report).QuestionCount)

	_, err = server.endCase(ctx, SessionArgs{SessionID: started.SessionID})
	require.NoError(t, err)

	_, err = server.scoreCase(ctx, SessionArgs{SessionID: started.SessionID})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestTools_ExportTranscripts(t *testing.T) {
	store, err := transcript.NewSQLiteStore(filepath.Join(t.TempDir(), "transcripts.db"))
	require.NoError(t, err)
	defer store.Close()

	server := newTestServer(t, service.WithTranscriptStore(store))
	ctx := context.Background()

	out, err := server.startCase(ctx, StartCaseArgs{PatientAge: 50, PatientGender: "M", Differential: []string{"ACS"}})
	require.NoError(t, err)
	sessionID := out.(*service.StartCaseResult).SessionID
	_, err = server.askQuestion(ctx, AskArgs{SessionID: sessionID, Question: "Does heart disease run in your family?"})
	require.NoError(t, err)
	_, err = server.endCase(ctx, SessionArgs{SessionID: sessionID})
	require.NoError(t, err)

	out, err = server.getTranscript(ctx, SessionArgs{SessionID: sessionID})
	require.NoError(t, err)
	assert.Len(t, out.(*transcript.Transcript).Log, 1)

	out, err = server.exportTranscripts(ctx, ExportArgs{})
	require.NoError(t, err)
	export := out.(*ExportResult)
	assert.Equal(t, int64(1), export.Count)

	data, err := os.ReadFile(export.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), sessionID)
}

func TestTools_ExportWithoutStore(t *testing.T) {
	server := newTestServer(t)

	_, err := server.exportTranscripts(context.Background(), ExportArgs{})
	assert.ErrorIs(t, err, domain.ErrStoreDisabled)
}

func TestTools_RejectsUnknownGender(t *testing.T) {
	server := newTestServer(t)

	_, err := server.startCase(context.Background(), StartCaseArgs{PatientAge: 40, PatientGender: "robot"})
	var validation *domain.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestRenderResult(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"missing session", domain.ErrSessionNotFound, domain.ErrCodeSessionNotFound},
		{"store disabled", domain.ErrStoreDisabled, domain.ErrCodeUnavailable},
		{"validation", domain.NewValidationError("question", "required", nil), domain.ErrCodeValidation},
		{"other", assert.AnError, domain.ErrCodeInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isError := renderResult(nil, tt.err)
			require.True(t, isError)

			var body domain.InterviewError
			require.NoError(t, json.Unmarshal([]byte(text), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.RequestID)
		})
	}

	text, isError := renderResult(map[string]int{"score": 90}, nil)
	assert.False(t, isError)
	assert.JSONEq(t, `{"score": 90}`, text)
}
