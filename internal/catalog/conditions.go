package catalog

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/clinical-interview-sim/internal/domain"
)

type conditionsFile struct {
	Conditions []domain.Condition `yaml:"conditions"`
}

// ConditionCatalog is the read-only registry of health conditions. All preserves the
// order of the source file; the query classifier and the generator both iterate it,
// so that order is part of the observable behaviour.
type ConditionCatalog struct {
	ordered []*domain.Condition
	byID    map[string]*domain.Condition
}

// NewConditionCatalog validates the entries and indexes them by id.
func NewConditionCatalog(conditions []domain.Condition) (*ConditionCatalog, error) {
	if len(conditions) == 0 {
		return nil, fmt.Errorf("condition catalog: %w", domain.ErrEmptyCatalog)
	}
	c := &ConditionCatalog{
		ordered: make([]*domain.Condition, 0, len(conditions)),
		byID:    make(map[string]*domain.Condition, len(conditions)),
	}
	for i := range conditions {
		cond := conditions[i]
		if err := cond.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCatalog, err)
		}
		if _, dup := c.byID[cond.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate condition id %q", domain.ErrInvalidCatalog, cond.ID)
		}
		c.ordered = append(c.ordered, &cond)
		c.byID[cond.ID] = &cond
	}
	return c, nil
}

// ParseConditions decodes a conditions YAML document.
func ParseConditions(data []byte) (*ConditionCatalog, error) {
	var f conditionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse conditions: %v", domain.ErrInvalidCatalog, err)
	}
	return NewConditionCatalog(f.Conditions)
}

// Get returns the condition with the given id.
func (c *ConditionCatalog) Get(id string) (*domain.Condition, bool) {
	cond, ok := c.byID[id]
	return cond, ok
}

// All returns the conditions in catalog order. The slice is a copy; the conditions
// themselves must be treated as immutable.
func (c *ConditionCatalog) All() []*domain.Condition {
	out := make([]*domain.Condition, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Len returns the number of conditions.
func (c *ConditionCatalog) Len() int {
	return len(c.ordered)
}

// Has reports whether id is in the catalog.
func (c *ConditionCatalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}
