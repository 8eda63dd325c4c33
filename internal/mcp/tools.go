package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinical-interview-sim/internal/domain"
	"github.com/clinical-interview-sim/internal/service"
)

// StartCaseArgs are the start_case arguments.
type StartCaseArgs struct {
	PatientAge    int      `json:"patient_age" jsonschema:"patient age in years"`
	PatientGender string   `json:"patient_gender,omitempty" jsonschema:"M or F"`
	Differential  []string `json:"differential" jsonschema:"working differential diagnoses, e.g. ACS or stroke"`
	Seed          *uint64  `json:"seed,omitempty" jsonschema:"seed to replay a previous family"`
}

// AskArgs are the ask_question arguments.
type AskArgs struct {
	SessionID string `json:"session_id" jsonschema:"session id returned by start_case"`
	Question  string `json:"question" jsonschema:"the learner's question, verbatim"`
}

// SessionArgs identify a session.
type SessionArgs struct {
	SessionID string `json:"session_id" jsonschema:"session id returned by start_case"`
}

func (s *Server) startCase(ctx context.Context, args StartCaseArgs) (any, error) {
	gender := domain.ParseGender(args.PatientGender)
	if args.PatientGender != "" && gender == domain.GenderUnknown {
		return nil, domain.NewValidationError("patient_gender", "must be M or F", args.PatientGender)
	}
	return s.interview.StartCase(ctx, service.StartCaseRequest{
		PatientAge:    args.PatientAge,
		PatientGender: gender,
		Differential:  args.Differential,
		Seed:          args.Seed,
	})
}

func (s *Server) askQuestion(ctx context.Context, args AskArgs) (any, error) {
	return s.interview.Ask(ctx, args.SessionID, args.Question)
}

func (s *Server) scoreCase(ctx context.Context, args SessionArgs) (any, error) {
	return s.interview.Score(ctx, args.SessionID)
}

func (s *Server) endCase(ctx context.Context, args SessionArgs) (any, error) {
	return s.interview.EndCase(ctx, args.SessionID)
}

func (s *Server) resetCase(ctx context.Context, args SessionArgs) (any, error) {
	if err := s.interview.Reset(ctx, args.SessionID); err != nil {
		return nil, err
	}
	return map[string]any{"session_id": args.SessionID, "stage": domain.StageFresh}, nil
}

func (s *Server) familyTree(ctx context.Context, args SessionArgs) (any, error) {
	return s.interview.FamilyTree(ctx, args.SessionID)
}

func (s *Server) getTranscript(ctx context.Context, args SessionArgs) (any, error) {
	return s.interview.Transcript(ctx, args.SessionID)
}

// ExportArgs are the export_transcripts arguments.
type ExportArgs struct{}

// ExportResult reports where the export was written.
type ExportResult struct {
	Path  string `json:"path"`
	Count int64  `json:"count"`
}

func (s *Server) exportTranscripts(ctx context.Context, _ ExportArgs) (any, error) {
	store := s.interview.Store()
	if store == nil {
		return nil, domain.ErrStoreDisabled
	}
	count, err := store.Count(ctx)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("transcripts-%s.json", time.Now().UTC().Format("20060102T150405Z"))
	path := filepath.Join(s.exportDir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if err := store.ExportJSON(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to export transcripts: %w", err)
	}
	return &ExportResult{Path: path, Count: count}, nil
}

// renderResult encodes a tool outcome as JSON. Errors become an InterviewError body.
func renderResult(out any, err error) (string, bool) {
	if err != nil {
		data, _ := json.MarshalIndent(toInterviewError(err), "", "  ")
		return string(data), true
	}
	data, mErr := json.MarshalIndent(out, "", "  ")
	if mErr != nil {
		data, _ = json.MarshalIndent(toInterviewError(mErr), "", "  ")
		return string(data), true
	}
	return string(data), false
}

func toInterviewError(err error) *domain.InterviewError {
	requestID := uuid.New().String()

	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		return domain.NewInterviewError(domain.ErrCodeValidation, validation.Error(), "", requestID)
	case errors.Is(err, domain.ErrSessionNotFound):
		return domain.NewInterviewError(domain.ErrCodeSessionNotFound, "Session not found", err.Error(), requestID)
	case errors.Is(err, domain.ErrNotFound):
		return domain.NewInterviewError(domain.ErrCodeNotFound, "Record not found", err.Error(), requestID)
	case errors.Is(err, domain.ErrStoreDisabled):
		return domain.NewInterviewError(domain.ErrCodeUnavailable, "Transcript storage is not configured", "", requestID)
	default:
		return domain.NewInterviewError(domain.ErrCodeInternalServer, "Internal error", strings.TrimSpace(err.Error()), requestID)
	}
}
