package service

import (
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/clinical-interview-sim/internal/catalog"
)

// RelevanceResolver turns a differential into the union of its relevant conditions.
// Every case start resolves a differential, and the same handful of differentials recur
// across learners, so unions are memoized in a bounded LRU.
type RelevanceResolver struct {
	relevance *catalog.RelevanceMap
	memo      *lru.Cache
	logger    *logrus.Logger

	stats   ResolverStats
	statsMu sync.Mutex
}

// ResolverStats counts memo behaviour and configuration gaps.
type ResolverStats struct {
	Hits              int64 `json:"hits"`
	Misses            int64 `json:"misses"`
	UnknownDiagnoses  int64 `json:"unknown_diagnoses"`
	EmptyDifferential int64 `json:"empty_differential"`
}

// DefaultResolverMemoSize bounds the number of memoized differentials.
const DefaultResolverMemoSize = 256

// NewRelevanceResolver creates a resolver. A non-positive size uses the default.
func NewRelevanceResolver(relevance *catalog.RelevanceMap, size int, logger *logrus.Logger) (*RelevanceResolver, error) {
	if size <= 0 {
		size = DefaultResolverMemoSize
	}
	memo, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &RelevanceResolver{relevance: relevance, memo: memo, logger: logger}, nil
}

// Resolve returns the ordered, de-duplicated relevant condition ids for differential.
// Diagnoses missing from the relevance map contribute nothing and are logged; an
// entirely unknown differential resolves to an empty list so generation falls back to
// base rates.
func (r *RelevanceResolver) Resolve(differential []string) []string {
	key := memoKey(differential)
	if cached, ok := r.memo.Get(key); ok {
		r.count(func(s *ResolverStats) { s.Hits++ })
		return append([]string(nil), cached.([]string)...)
	}
	r.count(func(s *ResolverStats) { s.Misses++ })

	if len(differential) == 0 {
		r.count(func(s *ResolverStats) { s.EmptyDifferential++ })
	}
	for _, dx := range differential {
		if !r.relevance.Known(dx) {
			r.count(func(s *ResolverStats) { s.UnknownDiagnoses++ })
			r.logger.WithFields(logrus.Fields{
				"diagnosis": dx,
			}).Warn("Diagnosis not in relevance map, using base-rate sampling for it")
		}
	}

	ids := r.relevance.ResolveAll(differential)
	r.memo.Add(key, ids)
	return append([]string(nil), ids...)
}

// Relevant reports whether conditionID is relevant to differential.
func (r *RelevanceResolver) Relevant(differential []string, conditionID string) bool {
	for _, id := range r.Resolve(differential) {
		if id == conditionID {
			return true
		}
	}
	return false
}

// Stats returns a snapshot of the resolver counters.
func (r *RelevanceResolver) Stats() ResolverStats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return r.stats
}

func (r *RelevanceResolver) count(fn func(*ResolverStats)) {
	r.statsMu.Lock()
	fn(&r.stats)
	r.statsMu.Unlock()
}

func memoKey(differential []string) string {
	parts := make([]string, len(differential))
	for i, dx := range differential {
		parts[i] = catalog.NormalizeName(dx)
	}
	return strings.Join(parts, "\x1f")
}
