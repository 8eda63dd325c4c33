package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/clinical-interview-sim/internal/cache"
	"github.com/clinical-interview-sim/internal/catalog"
	"github.com/clinical-interview-sim/internal/domain"
	"github.com/clinical-interview-sim/internal/transcript"
)

// StartCaseRequest carries the case-authoring inputs of a new session. A nil Seed
// draws a fresh one.
type StartCaseRequest struct {
	PatientAge    int           `json:"patient_age"`
	PatientGender domain.Gender `json:"patient_gender"`
	Differential  []string      `json:"differential"`
	Seed          *uint64       `json:"seed,omitempty"`
}

// StartCaseResult identifies the new session and the seed that reproduces it.
type StartCaseResult struct {
	SessionID string              `json:"session_id"`
	Seed      uint64              `json:"seed"`
	Family    *domain.FamilyGraph `json:"family"`
}

// InterviewService runs the case lifecycle: start, question loop, scoring and end.
// Sessions live in a bounded, expiring cache; finished ones are written to the
// transcript store when one is configured.
type InterviewService struct {
	catalogs  *catalog.Catalogs
	generator *FamilyGraphGenerator
	engine    *DisclosureEngine
	scorer    *CoverageScorer
	sessions  *cache.MemoryCache[*Session]
	store     transcript.Store
	clock     domain.Clock
	seeds     func() uint64
	logger    *logrus.Logger
}

// ServiceOption is a functional option for InterviewService.
type ServiceOption func(*InterviewService)

// WithTranscriptStore persists ended sessions to store.
func WithTranscriptStore(store transcript.Store) ServiceOption {
	return func(s *InterviewService) {
		s.store = store
	}
}

// WithClock overrides the time source.
func WithClock(clock domain.Clock) ServiceOption {
	return func(s *InterviewService) {
		s.clock = clock
	}
}

// WithSeedSource overrides how seeds are drawn for cases started without one.
func WithSeedSource(seeds func() uint64) ServiceOption {
	return func(s *InterviewService) {
		s.seeds = seeds
	}
}

// NewInterviewService wires the interview core from loaded catalogs and configuration.
func NewInterviewService(cats *catalog.Catalogs, cfg *domain.Config, logger *logrus.Logger, opts ...ServiceOption) (*InterviewService, error) {
	if cats == nil {
		return nil, fmt.Errorf("catalogs are required")
	}
	resolver, err := NewRelevanceResolver(cats.Relevance, DefaultResolverMemoSize, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create relevance resolver: %w", err)
	}

	s := &InterviewService{
		catalogs: cats,
		clock:    time.Now,
		seeds:    rand.Uint64,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	classifier := NewQueryClassifier(cats.Conditions, logger)
	s.generator = NewFamilyGraphGenerator(cats.Conditions, resolver, cfg.Generator, logger)
	s.engine = NewDisclosureEngine(classifier, cats.Conditions, s.clock, logger)
	s.scorer = NewCoverageScorer(cats.Questions, cfg.Scoring, logger)

	sessions, err := cache.NewMemoryCache(cfg.Sessions.MaxSessions, cfg.Sessions.TTL, func(id string, _ *Session) {
		logger.WithField("session_id", id).Debug("Session left the registry")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	s.sessions = sessions

	return s, nil
}

// NewRand returns the seeded source a session draws from.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Catalogs returns the loaded catalogs.
func (s *InterviewService) Catalogs() *catalog.Catalogs {
	return s.catalogs
}

// Generator returns the family graph generator.
func (s *InterviewService) Generator() *FamilyGraphGenerator {
	return s.generator
}

// Store returns the transcript store, or nil.
func (s *InterviewService) Store() transcript.Store {
	return s.store
}

// StartCase generates a family for the case and registers a new session.
func (s *InterviewService) StartCase(ctx context.Context, req StartCaseRequest) (*StartCaseResult, error) {
	seed := s.seeds()
	if req.Seed != nil {
		seed = *req.Seed
	}
	rng := NewRand(seed)

	graph := s.generator.Generate(rng, GenerateParams{
		PatientAge:    req.PatientAge,
		PatientGender: req.PatientGender,
		Differential:  req.Differential,
	})

	id := uuid.New().String()
	session := NewSession(id, seed, graph, rng, s.clock())
	s.sessions.Set(id, session)

	s.logger.WithFields(logrus.Fields{
		"session_id":   id,
		"seed":         seed,
		"patient_age":  graph.PatientAge,
		"differential": req.Differential,
		"family_size":  graph.Size(),
	}).Info("Case started")

	return &StartCaseResult{SessionID: id, Seed: seed, Family: graph}, nil
}

func (s *InterviewService) session(sessionID string) (*Session, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionNotFound)
	}
	return sess, nil
}

// Ask answers one learner question.
func (s *InterviewService) Ask(ctx context.Context, sessionID, question string) (*domain.DisclosureResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	result := s.engine.Ask(sess, question)
	return &result, nil
}

// Score reports coverage so far without ending the session.
func (s *InterviewService) Score(ctx context.Context, sessionID string) (*domain.Report, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	report := s.scorer.Score(sess.Log(), sess.Differential)
	return &report, nil
}

// Reset clears what has been asked in the session. The family is kept.
func (s *InterviewService) Reset(ctx context.Context, sessionID string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	sess.Reset()
	s.logger.WithField("session_id", sessionID).Info("Session reset")
	return nil
}

// FamilyTree returns the generated family for display.
func (s *InterviewService) FamilyTree(ctx context.Context, sessionID string) (*domain.FamilyGraph, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Graph(), nil
}

// EndCase scores the session, stores its transcript and removes it. Storage
// failures are logged and do not fail the call.
func (s *InterviewService) EndCase(ctx context.Context, sessionID string) (*domain.Report, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	log := sess.Log()
	report := s.scorer.Score(log, sess.Differential)

	if s.store != nil {
		t := &transcript.Transcript{
			SessionID:     sess.ID,
			PatientAge:    sess.PatientAge,
			PatientGender: sess.PatientGender,
			Differential:  sess.Differential,
			Seed:          sess.Seed,
			Log:           log,
			Report:        &report,
			StartedAt:     sess.CreatedAt,
			EndedAt:       s.clock(),
		}
		if err := s.store.Save(ctx, t); err != nil {
			s.logger.WithError(err).WithField("session_id", sessionID).Warn("Failed to store transcript")
		}
	}

	s.sessions.Delete(sessionID)

	s.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"questions":  report.QuestionCount,
		"score":      report.Score,
		"grade":      report.Grade,
	}).Info("Case ended")

	return &report, nil
}

// Transcript returns a stored transcript.
func (s *InterviewService) Transcript(ctx context.Context, sessionID string) (*transcript.Transcript, error) {
	if s.store == nil {
		return nil, domain.ErrStoreDisabled
	}
	t, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ActiveSessions returns the number of live sessions.
func (s *InterviewService) ActiveSessions() int {
	return s.sessions.Len()
}

// IsNotFound reports whether err means a missing session or record.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrNotFound)
}
