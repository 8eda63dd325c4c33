package service

import (
	"sync"
	"time"

	"github.com/clinical-interview-sim/internal/domain"
)

// Session is one learner working one case. It owns its family graph, its disclosure
// state and its random source; nothing in it is shared with other sessions.
type Session struct {
	ID            string
	Seed          uint64
	PatientAge    int
	PatientGender domain.Gender
	Differential  []string
	CreatedAt     time.Time

	graph *domain.FamilyGraph
	state *domain.DisclosureState
	rng   domain.Rand

	mu sync.Mutex
}

// NewSession wraps a generated graph. rng is used for reply wording only; the graph
// must already be generated.
func NewSession(id string, seed uint64, graph *domain.FamilyGraph, rng domain.Rand, createdAt time.Time) *Session {
	return &Session{
		ID:            id,
		Seed:          seed,
		PatientAge:    graph.PatientAge,
		PatientGender: graph.PatientGender,
		Differential:  append([]string(nil), graph.Differential...),
		CreatedAt:     createdAt,
		graph:         graph,
		state:         domain.NewDisclosureState(),
		rng:           rng,
	}
}

// Graph returns the read-only family graph.
func (s *Session) Graph() *domain.FamilyGraph {
	return s.graph
}

// State returns a copy of the disclosure state.
func (s *Session) State() *domain.DisclosureState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Snapshot()
}

// Log returns a copy of the question log.
func (s *Session) Log() []domain.QuestionLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.QuestionLogEntry(nil), s.state.Log...)
}

// Reset clears what has been asked. The family graph and catalogs are untouched.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Reset()
}
