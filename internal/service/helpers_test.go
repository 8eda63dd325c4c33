package service

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/clinical-interview-sim/internal/catalog"
	"github.com/clinical-interview-sim/internal/domain"
)

var fixedNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

type testCore struct {
	catalogs   *catalog.Catalogs
	resolver   *RelevanceResolver
	generator  *FamilyGraphGenerator
	classifier *QueryClassifier
	engine     *DisclosureEngine
	scorer     *CoverageScorer
}

func newTestCore(t *testing.T) *testCore {
	t.Helper()
	cats := catalog.MustDefault()
	logger := quietLogger()

	resolver, err := NewRelevanceResolver(cats.Relevance, 0, logger)
	require.NoError(t, err)

	classifier := NewQueryClassifier(cats.Conditions, logger)
	fixed := func() time.Time { return fixedNow }

	return &testCore{
		catalogs:   cats,
		resolver:   resolver,
		generator:  NewFamilyGraphGenerator(cats.Conditions, resolver, domain.DefaultGeneratorConfig(), logger),
		classifier: classifier,
		engine:     NewDisclosureEngine(classifier, cats.Conditions, fixed, logger),
		scorer:     NewCoverageScorer(cats.Questions, domain.DefaultScoringConfig(), logger),
	}
}

func (c *testCore) lookup(id string) (*domain.Condition, bool) {
	return c.catalogs.Conditions.Get(id)
}

func (c *testCore) session(graph *domain.FamilyGraph, seed uint64) *Session {
	return NewSession("test-session", seed, graph, NewRand(seed), time.Unix(0, 0))
}

func intPtr(v int) *int { return &v }

// livingWith builds a living member carrying one condition.
func livingWith(rel string, gender domain.Gender, age int, conditionID string, dx int) *domain.FamilyMember {
	return &domain.FamilyMember{
		Relationship: rel,
		Gender:       gender,
		Degree:       domain.FirstDegree,
		NominalAge:   age,
		CurrentAge:   intPtr(age),
		Alive:        true,
		Conditions:   []domain.DiagnosedCondition{{ConditionID: conditionID, AgeAtDiagnosis: dx}},
	}
}

func healthy(rel string, gender domain.Gender, age int) *domain.FamilyMember {
	return &domain.FamilyMember{
		Relationship: rel,
		Gender:       gender,
		NominalAge:   age,
		CurrentAge:   intPtr(age),
		Alive:        true,
	}
}
