package catalog

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/clinical-interview-sim/internal/domain"
)

type questionsFile struct {
	Questions []domain.EssentialQuestion `yaml:"questions"`
}

// QuestionCatalog is the registry of essential questions, indexed by the canonical
// diagnosis names they support.
type QuestionCatalog struct {
	ordered     []*domain.EssentialQuestion
	byID        map[string]*domain.EssentialQuestion
	byDiagnosis map[string][]*domain.EssentialQuestion
	aliases     *AliasResolver
}

// NewQuestionCatalog validates the questions. aliases may be nil, in which case
// diagnosis names are only normalized.
func NewQuestionCatalog(questions []domain.EssentialQuestion, aliases *AliasResolver) (*QuestionCatalog, error) {
	c := &QuestionCatalog{
		ordered:     make([]*domain.EssentialQuestion, 0, len(questions)),
		byID:        make(map[string]*domain.EssentialQuestion, len(questions)),
		byDiagnosis: make(map[string][]*domain.EssentialQuestion),
		aliases:     aliases,
	}
	for i := range questions {
		q := questions[i]
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCatalog, err)
		}
		if _, dup := c.byID[q.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate question id %q", domain.ErrInvalidCatalog, q.ID)
		}
		c.ordered = append(c.ordered, &q)
		c.byID[q.ID] = &q
		for _, dx := range q.LinkedDiagnoses {
			key := aliases.Canonical(dx)
			c.byDiagnosis[key] = append(c.byDiagnosis[key], &q)
		}
	}
	return c, nil
}

// ParseQuestions decodes an essential-question YAML document.
func ParseQuestions(data []byte, aliases *AliasResolver) (*QuestionCatalog, error) {
	var f questionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse questions: %v", domain.ErrInvalidCatalog, err)
	}
	return NewQuestionCatalog(f.Questions, aliases)
}

// Get returns the question with the given id.
func (c *QuestionCatalog) Get(id string) (*domain.EssentialQuestion, bool) {
	q, ok := c.byID[id]
	return q, ok
}

// All returns every question in file order.
func (c *QuestionCatalog) All() []*domain.EssentialQuestion {
	out := make([]*domain.EssentialQuestion, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Len returns the number of questions.
func (c *QuestionCatalog) Len() int {
	return len(c.ordered)
}

// ForDiagnosis returns the questions linked to diagnosisName after alias resolution.
// Unknown diagnoses yield an empty list.
func (c *QuestionCatalog) ForDiagnosis(diagnosisName string) []*domain.EssentialQuestion {
	qs := c.byDiagnosis[c.aliases.Canonical(diagnosisName)]
	out := make([]*domain.EssentialQuestion, len(qs))
	copy(out, qs)
	return out
}

// Resolve unions the questions of every diagnosis in the differential by id. Each
// result keeps the differential entries, as given, that pulled it in. Results are
// ordered by tier, essential first, then by id.
func (c *QuestionCatalog) Resolve(differential []string) []domain.ResolvedQuestion {
	index := make(map[string]int)
	var out []domain.ResolvedQuestion
	for _, dx := range differential {
		for _, q := range c.ForDiagnosis(dx) {
			i, ok := index[q.ID]
			if !ok {
				index[q.ID] = len(out)
				out = append(out, domain.ResolvedQuestion{Question: q, Diagnoses: []string{dx}})
				continue
			}
			if !containsString(out[i].Diagnoses, dx) {
				out[i].Diagnoses = append(out[i].Diagnoses, dx)
			}
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		qa, qb := out[a].Question, out[b].Question
		if qa.Tier != qb.Tier {
			return qa.Tier == domain.TierEssential
		}
		return qa.ID < qb.ID
	})
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
